package mcpserver

// LayoutURI identifies the output layout resource.
const LayoutURI = "notex://layout"

// LayoutGuide describes how a generated knowledge base is laid out, so an
// MCP client knows how to navigate it.
const LayoutGuide = `# Notex Knowledge Base Layout

Files are generated from a directory of raw notes. Each raw note is split into
topical segments, every segment is rewritten for clarity, and segments are
merged into one file per topic.

## Paths

- ` + "`<category>/<topic>.md`" + ` (or ` + "`.txt`" + ` for plain-text output).
- ` + "`<category>`" + ` is a lowercase name such as ` + "`mathematics`" + `, ` + "`machine_learning`" + `,
  ` + "`journal`" + ` or ` + "`todo`" + `; custom categories are allowed.
- An optional reorganization pass may move files into deeper folders
  (e.g. ` + "`mathematics/calculus/chain_rule.md`" + `).

## Content

- Segments merged into one file are separated by a line containing ` + "`---`" + `
  (markdown) or a line of 80 ` + "`=`" + ` characters (plain).
- Questions from the raw notes are kept as ` + "`[Q: original question]`" + ` followed by
  the answer.
- Cross-reference blocks look like:

      ---

      **See also:** [mathematics/calculus/chain_rule.md](./../mathematics/calculus/chain_rule.md) - reason

## Tools

- ` + "`list_notes`" + ` lists files, optionally for one category.
- ` + "`read_note`" + ` returns one file with its outgoing links and backlinks.
- ` + "`search_notes`" + ` runs a full-text search.
- ` + "`get_backlinks`" + ` lists files that link to a path.
`
