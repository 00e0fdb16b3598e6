package apisurface

// ToolPackage and Version are recorded in the metadata of every written
// model file.
const (
	ToolPackage = "apisurface"
	Version     = "0.1.0"
)
