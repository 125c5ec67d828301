package rig

// SpringDamper is the suspension link between the sprung body and the axle.
// Command is the force set point; it is overwritten, never accumulated.
type SpringDamper struct {
	Spring     float64
	Damping    float64
	RestLength float64
	Baseline   float64
	command    float64
}

func (sd *SpringDamper) ApplyControl(signal float64) {
	sd.command = sd.Baseline + signal
}

func (sd *SpringDamper) Command() float64 { return sd.command }

// Force is the axial force at length l and rate ldot. Positive pushes the
// bodies apart.
func (sd *SpringDamper) Force(l, ldot float64) float64 {
	return sd.command - sd.Spring*(l-sd.RestLength) - sd.Damping*ldot
}
