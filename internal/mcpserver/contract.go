package mcpserver

// AnchorFormatContract describes the portable text anchor format that
// LLM consumers encounter when reading annotations.
const AnchorFormatContract = `# Lesari Text Anchor Contract

Every annotation stored in Lesari carries a ` + "`" + `range` + "`" + ` field in this format.

## Structure

` + "```" + `json
{
  "version": 2,
  "exact": "the highlighted text, verbatim",
  "prefix": "up to 30 chars of text before",
  "suffix": "up to 30 chars of text after",
  "anchorId": "nearest-heading-id",
  "offsetFromAnchor": 142
}
` + "```" + `

## Rules

1. **` + "`" + `version` + "`" + ` is 1 or 2.** Version 2 is canonical; version 1 is a legacy
   offset-based format (` + "`" + `startOffset` + "`" + `/` + "`" + `endOffset` + "`" + `) that is read-only and
   upgraded automatically once its text is located again.
2. **` + "`" + `exact` + "`" + ` is never empty** for a valid v2 anchor. It is what restoration
   searches for; ` + "`" + `prefix` + "`" + ` and ` + "`" + `suffix` + "`" + ` only disambiguate repeats.
3. **` + "`" + `prefix` + "`" + ` / ` + "`" + `suffix` + "`" + ` may be empty** when the selection touches a
   document boundary.
4. **` + "`" + `anchorId` + "`" + ` may be absent**, meaning the whole section is searched.
   When present it names a heading element with a stable id.
5. **` + "`" + `offsetFromAnchor` + "`" + ` is diagnostic.** It orders annotations within a
   section for export; restoration never depends on it.
6. **Anchors never reference document nodes or whole-document offsets**, so
   they survive re-rendering of the section content.
`
