// Package config loads the rig document and the harness settings.
//
// The rig document is JSON or YAML with the top-level sections Position,
// Wheel, Floor, Body, SD, Camera, Contact and Obstacles. Only Position is
// mandatory. A section that is present must carry all of its required
// fields; a section that is absent is left nil so the rig builder falls back
// to its compiled-in defaults.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrConfig classifies every configuration failure: unreadable or malformed
// documents, a missing Position section, missing required fields and
// out-of-range values.
var ErrConfig = eris.New("configuration error")

type Vec3Section struct {
	X *float64 `yaml:"x,omitempty"`
	Y *float64 `yaml:"y,omitempty"`
	Z *float64 `yaml:"z,omitempty"`
}

type WheelSection struct {
	Velocity *float64 `yaml:"velocity,omitempty"`
	Radius   *float64 `yaml:"rWheel,omitempty"`
	Height   *float64 `yaml:"hWheel,omitempty"`
	Density  *float64 `yaml:"density,omitempty"`
}

type FloorSection struct {
	X *float64 `yaml:"x,omitempty"`
	Z *float64 `yaml:"z,omitempty"`
}

type BodySection struct {
	XSize   *float64 `yaml:"xSize,omitempty"`
	YSize   *float64 `yaml:"ySize,omitempty"`
	ZSize   *float64 `yaml:"zSize,omitempty"`
	Density *float64 `yaml:"density,omitempty"`
}

// SpringDamperSection is the "SD" block: suspension spring, damping and the
// rest length (base) between axle and sprung body.
type SpringDamperSection struct {
	Spring  *float64 `yaml:"spring,omitempty"`
	Damping *float64 `yaml:"damping,omitempty"`
	Base    *float64 `yaml:"base,omitempty"`
}

type ContactSection struct {
	Stiffness *float64 `yaml:"stiffness,omitempty"`
	Damping   *float64 `yaml:"damping,omitempty"`
}

// ObstacleSection is a static slab placed on the floor.
type ObstacleSection struct {
	X     *float64 `yaml:"x,omitempty"`
	Y     *float64 `yaml:"y,omitempty"`
	Z     *float64 `yaml:"z,omitempty"`
	XSize *float64 `yaml:"xSize,omitempty"`
	YSize *float64 `yaml:"ySize,omitempty"`
	ZSize *float64 `yaml:"zSize,omitempty"`
}

// Document is the parsed rig description. It is never mutated after Load.
type Document struct {
	Position  *Vec3Section         `yaml:"Position,omitempty"`
	Wheel     *WheelSection        `yaml:"Wheel,omitempty"`
	Floor     *FloorSection        `yaml:"Floor,omitempty"`
	Body      *BodySection         `yaml:"Body,omitempty"`
	SD        *SpringDamperSection `yaml:"SD,omitempty"`
	Camera    *Vec3Section         `yaml:"Camera,omitempty"`
	Contact   *ContactSection      `yaml:"Contact,omitempty"`
	Obstacles []ObstacleSection    `yaml:"Obstacles,omitempty"`
}

// Load reads a JSON or YAML rig document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrConfig, "could not open %s: %v", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "%s", path)
	}
	return doc, nil
}

// Parse decodes a document and checks that Position is present. Field-level
// checks for optional sections happen in Validate.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.Wrap(ErrConfig, "empty document")
	}
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, eris.Wrapf(ErrConfig, "invalid document: %v", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func Save(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "marshal document")
	}
	return eris.Wrap(os.WriteFile(path, data, 0644), "write document")
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() (*Document, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, eris.Wrap(err, "marshal document")
	}
	out := &Document{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, eris.Wrap(err, "unmarshal document")
	}
	return out, nil
}

// Validate reports the first missing required field or out-of-range value.
func (d *Document) Validate() error {
	if d.Position == nil {
		return eris.Wrap(ErrConfig, "missing mandatory section Position")
	}
	if err := required("Position",
		field{"x", d.Position.X, free},
		field{"y", d.Position.Y, free},
		field{"z", d.Position.Z, free},
	); err != nil {
		return err
	}
	if w := d.Wheel; w != nil {
		if err := required("Wheel",
			field{"rWheel", w.Radius, positive},
			field{"hWheel", w.Height, positive},
			field{"density", w.Density, positive},
		); err != nil {
			return err
		}
	}
	if f := d.Floor; f != nil {
		if err := required("Floor",
			field{"x", f.X, positive},
			field{"z", f.Z, positive},
		); err != nil {
			return err
		}
	}
	if b := d.Body; b != nil {
		if err := required("Body",
			field{"xSize", b.XSize, positive},
			field{"ySize", b.YSize, positive},
			field{"zSize", b.ZSize, positive},
			field{"density", b.Density, positive},
		); err != nil {
			return err
		}
	}
	if sd := d.SD; sd != nil {
		if err := required("SD",
			field{"spring", sd.Spring, positive},
			field{"damping", sd.Damping, nonNegative},
			field{"base", sd.Base, positive},
		); err != nil {
			return err
		}
	}
	if c := d.Camera; c != nil {
		if err := required("Camera",
			field{"x", c.X, free},
			field{"y", c.Y, free},
			field{"z", c.Z, free},
		); err != nil {
			return err
		}
	}
	if c := d.Contact; c != nil {
		if err := required("Contact",
			field{"stiffness", c.Stiffness, positive},
			field{"damping", c.Damping, nonNegative},
		); err != nil {
			return err
		}
	}
	for i, o := range d.Obstacles {
		if err := required(fmt.Sprintf("Obstacles[%d]", i),
			field{"x", o.X, free},
			field{"y", o.Y, free},
			field{"z", o.Z, free},
			field{"xSize", o.XSize, positive},
			field{"ySize", o.YSize, positive},
			field{"zSize", o.ZSize, positive},
		); err != nil {
			return err
		}
	}
	return nil
}

type bound int

const (
	free bound = iota
	positive
	nonNegative
)

type field struct {
	name  string
	value *float64
	bound bound
}

func required(section string, fields ...field) error {
	for _, f := range fields {
		if f.value == nil {
			return eris.Wrapf(ErrConfig, "section %s: missing field %s", section, f.name)
		}
		v := *f.value
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return eris.Wrapf(ErrConfig, "section %s: %s must be finite, got %g", section, f.name, v)
		case f.bound == positive && v <= 0:
			return eris.Wrapf(ErrConfig, "section %s: %s must be positive, got %g", section, f.name, v)
		case f.bound == nonNegative && v < 0:
			return eris.Wrapf(ErrConfig, "section %s: %s must not be negative, got %g", section, f.name, v)
		}
	}
	return nil
}

// Get dereferences an optional field, returning fallback when it is unset.
func Get(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// F is a convenience for building documents in code.
func F(v float64) *float64 { return &v }
