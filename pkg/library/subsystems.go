package library

import "github.com/joshuapare/hidkit/hid"

// Built-in subsystems. Each releases its objects with Closer.
var (
	Files       = Subsystem{Name: "file", Category: hid.File, Release: Closer}
	Groups      = Subsystem{Name: "group", Category: hid.Group, Release: Closer}
	Datatypes   = Subsystem{Name: "datatype", Category: hid.Datatype, Release: Closer}
	Dataspaces  = Subsystem{Name: "dataspace", Category: hid.Dataspace, Release: Closer}
	Datasets    = Subsystem{Name: "dataset", Category: hid.Dataset, Release: Closer}
	Attributes  = Subsystem{Name: "attribute", Category: hid.Attribute, Release: Closer}
	References  = Subsystem{Name: "reference", Category: hid.Reference, Release: Closer}
	PropLists   = Subsystem{Name: "proplist", Category: hid.PropList, Release: Closer}
	ErrorStacks = Subsystem{Name: "errorstack", Category: hid.ErrorStack, Release: Closer}
)

// Subsystems returns every built-in subsystem in initialization order.
func Subsystems() []Subsystem {
	return []Subsystem{Files, Groups, Datatypes, Dataspaces, Datasets, Attributes, References, PropLists, ErrorStacks}
}

// InitAll initializes every built-in subsystem.
func (l *Library) InitAll() error {
	for _, sub := range Subsystems() {
		if err := l.Init(sub); err != nil {
			return err
		}
	}
	return nil
}
