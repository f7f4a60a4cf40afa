// Package metadata defines the per-node data bag carried by diagram nodes.
//
// The bag is modeled as a set of known optional fields plus an explicit
// extension map for caller-defined data:
//
//	text            display string
//	collapsed       subtree collapse state
//	isMindmap       layout flag
//	level           mind-map depth
//	folderExplorer  binding to a filesystem path ([FolderExplorer])
//	convertedFrom   shape kind a node had before a rich-content conversion
//
// Known optional fields are pointers so that an absent field and a zero
// value stay distinguishable. Everything else lives in [DataBag.Extra] and
// is encoded inline next to the known keys.
//
// # Round-trip Fidelity
//
// [DataBag.Clone] is a deep copy and [DataBag.Equal] a deep comparison, so
// in-memory snapshots can be checked for exact equality. The JSON encoding
// decodes unknown numbers as [encoding/json.Number], which re-encodes to
// the exact input text:
//
//	var bag metadata.DataBag
//	_ = json.Unmarshal([]byte(`{"text":"a","weight":1.50}`), &bag)
//	out, _ := json.Marshal(bag) // {"text":"a","weight":1.50}
//
// A known key whose value is null or has an unexpected type is kept in
// Extra instead of failing the decode. [FolderExplorer] applies the same
// rule to its own keys and also remembers which of them were missing.
//
// The folderExplorer and collapsed fields are independent. No field implies
// a value for any other.
package metadata
