package mcpserver

// PostFormatContract describes the canonical page-bundle post format that
// LLM consumers should follow when creating or updating posts.
const PostFormatContract = `# Jera Post Format Contract

Every post stored in Jera is a page bundle: a directory holding the post
document and everything the post references.

## Structure

` + "```" + `
2025-11-01-my-post-title/       # YYYY-MM-DD-slug, derived from date + title
├── index.md                    # the post document (entry)
└── images/                     # assets referenced by index.md
    └── chart.png
` + "```" + `

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – drives the slug and search
date: 2025-11-01                   # REQUIRED – ISO-8601 date, drives the dir prefix
draft: false                        # OPTIONAL – drafts are indexed but filterable
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
---

Body text in standard Markdown.

![chart](images/chart.png)
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `title` + "`" + ` and ` + "`" + `date` + "`" + ` fields are required.** Together they determine the
   bundle directory name: lowercase slug of the title prefixed with the date.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `release-notes` + "`" + `).
4. **Directory names** use Latin characters only; slugs contain ` + "`" + `a-z` + "`" + `,
   ` + "`" + `0-9` + "`" + ` and hyphens. Frontmatter values and body content may use any language.
5. **Encoding** is UTF-8 with a trailing newline.
6. **No HTML** unless absolutely necessary; prefer Markdown equivalents.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + `
  field ready to paste into the post body.
- Every asset lives inside the bundle's own ` + "`" + `images/` + "`" + ` directory, next to
  ` + "`" + `index.md` + "`" + `.
- Reference assets with bundle-relative paths only: ` + "`" + `![description](images/filename.png)` + "`" + `
- Never use absolute paths like ` + "`" + `/images/...` + "`" + ` or ` + "`" + `/static/...` + "`" + `, and never
  reach outside the bundle with ` + "`" + `../` + "`" + ` — both break when the bundle moves and
  fail the integrity check.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
---
title: Shipping the new importer
date: 2025-11-01
tags:
  - release-notes
  - importer
---

# Shipping the new importer

The importer now handles partial batches.

![Throughput before and after](images/throughput.png)
` + "```" + `
`
