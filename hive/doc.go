// Package hive is a read/write library for Windows NT registry hive
// files.
//
// # Overview
//
// This package decodes a hive (REGF) file into a navigable tree of
// keys and values, validates it defensively against truncated or
// adversarially crafted input, and can mutate and re-serialize the
// tree. Every cross-reference inside the file stays a plain integer
// offset rather than becoming a language-level pointer; offsets are
// resolved only through the handle's BlockMap (BlockMap.IsValidBlock),
// the single source of truth for "does this offset point at the start
// of a validated, used cell".
//
// # Key Types
//
//   - Handle: an opened hive, owning its backing file or mapping and
//     its BlockMap
//   - BlockMap: the bit-per-cell validity index every offset
//     resolution consults
//   - Visitor: optional per-type callbacks for a depth-first traversal
//   - ValueSpec: a value to write, for SetValues
//
// # File Structure
//
//	[regf header - 4KB] [hbin 0] [hbin 1] ... [hbin N]
//
// Each hbin holds a run of cells (nk, vk, sk, lf/lh, ri, and
// headerless value-list cells); cells are addressed by offset relative
// to the first hbin.
//
// # Opening a Hive
//
//	h, err := hive.Open("/path/to/SYSTEM", hive.OpenFlags{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
// Read-only opens memory-map the file where the platform supports it
// (see loader_unix.go / loader_other.go); writable opens always read
// the file into an owned, growable buffer.
//
// # Navigating and Mutating
//
//	root, _ := h.Root()
//	child, _ := h.NodeGetChild(root, "Software")
//	children, _ := h.NodeChildren(child) // child nk offsets
//
//	h2, _ := hive.Open(path, hive.OpenFlags{Write: true})
//	defer h2.Close()
//	k, _ := h2.AddChild(root, "NewKey")
//	h2.SetValues(k, []hive.ValueSpec{{Name: "Count", Type: 4, Data: ...}})
//	h2.Commit("/path/to/SYSTEM.new")
//
// # Traversal
//
// Visit walks a subtree depth-first, dispatching each value to the
// narrowest matching Visitor callback and breaking any cycle in a
// crafted subkey graph rather than looping forever. VisitFlags.SkipBad
// demotes structural decode failures to "skip this node" without
// demoting errors a callback itself returns.
package hive
