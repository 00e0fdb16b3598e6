package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIExtractSummary describes a written API model.
type CLIExtractSummary struct {
	Package  string    `json:"package"`
	Path     string    `json:"path,omitempty"`
	Items    []CLIItem `json:"items"`
	Warnings []string  `json:"warnings,omitempty"`
}

// CLIItem is one top-level item of the entry point.
type CLIItem struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	ReleaseTag string `json:"release_tag"`
	Reference  string `json:"canonical_reference"`
	Members    int    `json:"members"`
}

// CLIResolution is the outcome of resolving one declaration reference.
type CLIResolution struct {
	Reference string      `json:"reference"`
	Kind      string      `json:"kind,omitempty"`
	Name      string      `json:"name,omitempty"`
	Canonical string      `json:"canonical_reference,omitempty"`
	Excerpt   string      `json:"excerpt,omitempty"`
	Failure   *CLIFailure `json:"failure,omitempty"`
}

type CLIFailure struct {
	Reason  string `json:"reason"`
	Segment string `json:"segment"`
	Index   int    `json:"index"`
	Message string `json:"message"`
}
