package config

import "sort"

// Presets build a fresh document on every call so callers may not alias
// each other's pointers.
var Presets = map[string]func() *Document{
	"default": func() *Document {
		return &Document{
			Position: &Vec3Section{X: F(0), Y: F(1), Z: F(0)},
		}
	},
	"quarter-car": quarterCar,
	"bump": func() *Document {
		doc := quarterCar()
		doc.Wheel.Velocity = F(1)
		doc.Obstacles = []ObstacleSection{
			{X: F(2), Y: F(0.025), Z: F(0), XSize: F(0.5), YSize: F(0.05), ZSize: F(1)},
		}
		return doc
	},
}

func quarterCar() *Document {
	return &Document{
		Position: &Vec3Section{X: F(0), Y: F(1), Z: F(0)},
		Wheel:    &WheelSection{Velocity: F(0), Radius: F(0.3), Height: F(0.2), Density: F(1000)},
		SD:       &SpringDamperSection{Spring: F(5000), Damping: F(500), Base: F(0.5)},
	}
}

func GetPreset(name string) *Document {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
