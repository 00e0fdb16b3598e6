// Package scripts embeds the Risor extraction scripts so binaries do not
// depend on a scripts directory at run time.
package scripts

import "embed"

// FS holds extract/<language>.risor for every supported language.
//
//go:embed extract/*.risor
var FS embed.FS
