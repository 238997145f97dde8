// See interface.go for DualInterface's arena operations, ancestry.go for
// the dual-node ancestry walks (§4.2), and sanity.go for the invariant
// checks required by §3 and §7.
package dualinterface
