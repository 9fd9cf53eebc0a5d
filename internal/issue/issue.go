// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	UnsupportedManifestVersionId
	ConfigLoadFailedId
	DependencyCycleId
	DuplicateModuleId
	WatchFailedId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation or external link.
	HttpLink string

	// Issue is a catalog entry with remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown using the glamour style at stylePath
// (a standard style name such as "dark", or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No manifest found!

modhost needs a manifest that lists the modules to load.

## Search order
1. The path given on the command line
2. The ` + "`manifest`" + ` key of your config file
3. ` + "`modules.cue`" + ` in the current directory

## Things you can try
- Pass the manifest explicitly:
~~~
$ modhost plan ./deploy/modules.cue
~~~

- Or create one:
~~~cue
version: "1"
modules: [
	{id: "core", level: 0},
	{id: "web", depends_on: ["core"]},
]
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse manifest!

A manifest or one of its includes is not valid.

## Common issues
- Syntax errors (missing quotes, braces or commas)
- Unknown field names (manifests are closed schemas)
- Module ids or unit names containing whitespace
- Include patterns pointing outside the manifest directory

## Things you can try
- Validate the manifest on its own:
~~~
$ modhost validate modules.cue
~~~`,
	}

	unsupportedManifestVersionIssue = &Issue{
		id: UnsupportedManifestVersionId,
		mdMsg: `
# Unsupported manifest version!

The ` + "`version`" + ` field of the manifest is outside the range this build reads.

## Things you can try
- Set ` + "`version: \"1\"`" + ` if the manifest only uses documented fields
- Upgrade modhost to read newer manifests`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The host configuration file could not be read or does not match the schema.

## Things you can try
- Show where modhost looks for its configuration:
~~~
$ modhost config path
~~~

- Regenerate a default configuration:
~~~
$ modhost config init --force
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Circular module dependency!

Two or more modules depend on each other, so no load order exists.
Dependencies come from ` + "`depends_on`" + ` and from units that reference
other units.

## Things you can try
- Inspect the edges and their origin:
~~~
$ modhost graph --format dot | dot -Tsvg > graph.svg
~~~

- Remove one ` + "`depends_on`" + ` entry or one unit reference in the chain
- Disable a module in the chain while investigating:
~~~
$ modhost plan --disable <module>
~~~`,
	}

	duplicateModuleIssue = &Issue{
		id: DuplicateModuleId,
		mdMsg: `
# Duplicate module id!

Two module declarations share the same id. Ids must be unique across the
manifest and everything it includes.

## Things you can try
- Rename one of the modules
- Use ` + "`overrides.replace`" + ` to swap a module instead of declaring it twice`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# File watching failed!

modhost could not watch the manifest files for changes.

## Things you can try
- Raise the inotify watch limit on Linux:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~

- Run ` + "`modhost plan`" + ` without ` + "`--watch`",
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():           manifestNotFoundIssue,
		manifestParseErrorIssue.Id():         manifestParseErrorIssue,
		unsupportedManifestVersionIssue.Id(): unsupportedManifestVersionIssue,
		configLoadFailedIssue.Id():           configLoadFailedIssue,
		dependencyCycleIssue.Id():            dependencyCycleIssue,
		duplicateModuleIssue.Id():            duplicateModuleIssue,
		watchFailedIssue.Id():                watchFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	v := maps.Values(issues)
	slices.SortFunc(v, func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
	return v
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
