// Package library embeds a handle registry in a process.
//
// The hid package does no locking of its own. Library wraps one
// *hid.Registry behind a single mutex, owns each category's layout (bucket
// count and reserved range, optionally loaded from YAML or TOML), and exposes the
// shutdown entry point.
//
// Typical use from a subsystem:
//
//	lib := library.New(library.DefaultConfig())
//	if err := lib.Init(library.Attributes); err != nil {
//	    return err
//	}
//	h, err := lib.Register(hid.Attribute, attr)
//	...
//	a, ok := library.Get[*Attr](lib, h, hid.Attribute)
//	...
//	rep := lib.Shutdown()
//	if !rep.Clean() {
//	    log.Print(rep)
//	}
package library
