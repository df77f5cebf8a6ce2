package workspace

import "github.com/anvil-agent/anvil/internal/adapter"

// Catalog declares the workspace actions. Mutation classification is
// static: anything that can change the tree or run code is mutating.
func (a *Adapter) Catalog() adapter.Catalog {
	return adapter.Catalog{
		{
			Name:        "read_file",
			Description: "Read a file relative to the workspace root. Large files return the head plus a size note.",
			InputSchema: `{"type":"object","properties":{"path":{"type":"string","description":"Path relative to the workspace root"}},"required":["path"]}`,
		},
		{
			Name:        "write_file",
			Description: "Write a file relative to the workspace root, creating parent directories as needed. Overwrites existing content.",
			InputSchema: `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`,
			Mutating:    true,
		},
		{
			Name:        "list_dir",
			Description: "List directory entries. Set recursive to walk the whole subtree.",
			InputSchema: `{"type":"object","properties":{"path":{"type":"string","description":"Directory relative to the workspace root, default the root"},"recursive":{"type":"boolean"}}}`,
		},
		{
			Name:        "search_text",
			Description: "Search file contents with a regular expression. Returns path, line number, and the matching line.",
			InputSchema: `{"type":"object","properties":{"pattern":{"type":"string"},"path":{"type":"string","description":"Restrict the search to this subtree"},"case_insensitive":{"type":"boolean"}},"required":["pattern"]}`,
		},
		{
			Name:        "delete_file",
			Description: "Delete a single file. Directories are refused.",
			InputSchema: `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
			Mutating:    true,
		},
		{
			Name:        "run_cmd",
			Description: "Run an allowlisted command in the workspace, sandboxed when Docker is available. Output is truncated.",
			InputSchema: `{"type":"object","properties":{"command":{"type":"string","description":"Executable name, e.g. go"},"args":{"type":"string","description":"Arguments as a single string, quotes respected"},"timeout_seconds":{"type":"integer"}},"required":["command"]}`,
			Mutating:    true,
		},
	}
}
