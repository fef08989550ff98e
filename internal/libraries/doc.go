// Package libraries reads the YAML file that describes which libraries and
// folders create-project adds to a new project.
//
// The document maps a library list name to its libraries, and each library to
// its folders in creation order:
//
//	Libraries:
//	  Editorial: [Conform, Offline]
//	  VFX:
//
// Document order is preserved. A malformed document is ignored with a warning
// so a bad file never blocks project creation.
package libraries
