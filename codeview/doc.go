// Package codeview reads CodeView debug subsections ("fragments") as found in
// .debug$S sections of COFF objects and in PDB module streams, and dispatches
// them to a Visitor.
//
// Records come from a Stream (or any other iter.Seq2[Record, error]), are
// decoded into kind specific views and passed to matching Visitor method.
// Traversal is forward only and stops on the first error.
package codeview
