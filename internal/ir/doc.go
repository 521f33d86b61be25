// Package ir provides the value model shared by every statefuzz package.
//
// ir imports nothing internal. It holds the sealed IRValue type, the model
// description schema (ModelSpec), canonical JSON and the domain-separated
// hashes built on it.
//
// Key design constraints:
//   - Values are scalars (int64, float64, bool, string) plus arrays and
//     objects for snapshots; IRNull means absent
//   - All JSON tags use snake_case
//   - Signatures hash canonical JSON only, never fmt or map iteration order
package ir
