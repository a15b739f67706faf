// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"errors"
	"io/fs"
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"

	"github.com/provisio/provisio/internal/artifact"
	"github.com/provisio/provisio/internal/dag"
	"github.com/provisio/provisio/pkg/fperr"
)

// Id identifies an issue in the catalog.
type Id int

const (
	FeaturePackNotFoundId Id = iota + 1
	DescriptorInvalidId
	ResolutionFailedId
	DependencyCycleId
	ArtifactFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

// Issue is a Markdown guide shown with --verbose for a class of failures.
type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

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

// Render renders the issue with glamour. An empty stylePath selects the
// terminal-detected style.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	featurePackNotFoundIssue = &Issue{
		id: FeaturePackNotFoundId,
		mdMsg: `
# Feature-pack not found!

A feature-pack coordinate could not be found in the local repository.

## Things you can try:
- Check the coordinate (group:artifact:version) for typos
- List the versions available in the repository:
~~~
$ provisio fp versions org.example:web
~~~
- Install the feature-pack from its directory:
~~~
$ provisio fp install org.example:web:1.0.0 ./web
~~~
- Point provisio at another repository with --repository or
  PROVISIO_REPOSITORY_DIR`,
	}

	descriptorInvalidIssue = &Issue{
		id: DescriptorInvalidId,
		mdMsg: `
# Invalid provisioning description!

A feature-pack descriptor, provisioning request or schema is malformed or
contradicts itself. The error names the file and the offending field.

## Common causes:
- A parameter set on a feature that its spec does not declare
- A feature id whose parameters differ from the spec's identity parameters
- A dependency declared twice, or a package listed both included and excluded
- An unknown field or a value of the wrong type in a ` + "`.cue`" + ` file

## Things you can try:
- Validate a schema description on its own:
~~~
$ provisio schema describe ./config-schema.cue
~~~`,
	}

	resolutionFailedIssue = &Issue{
		id: ResolutionFailedId,
		mdMsg: `
# Provisioning could not be resolved!

Every description is well formed, but the feature-pack graph cannot satisfy
the request.

## Common causes:
- Two dependencies provide the same package or feature spec
- A feature requires a capability that no feature of the config provides
- A package or feature dependency points at something that was excluded
- A feature-pack names a plugin that is not registered

## Things you can try:
- Print the resolved state as far as it goes with debug logging:
~~~
$ provisio resolve ./provisioning.cue --log-level debug
~~~
- Give ambiguous dependencies an origin and reference it explicitly`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Feature-packs, or features within one config, depend on each other in a
loop. The error lists the members of the cycle.

## Things you can try:
- Remove one of the dependencies in the cycle
- Turn a feature dependency into an optional capability requirement`,
	}

	artifactFailedIssue = &Issue{
		id: ArtifactFailedId,
		mdMsg: `
# Repository operation failed!

Reading from or writing to the feature-pack repository failed.

## Things you can try:
- Check that the repository directory exists and is writable
- Use ` + "`provisio fp install`" + ` to replace an artifact; ` + "`fp deploy`" + ` refuses
  to overwrite one`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The provisio configuration file could not be read or does not match the
configuration schema.

## Things you can try:
- Show the default configuration:
~~~
$ provisio config show --defaults
~~~
- Recreate the file:
~~~
$ provisio config init
~~~
- Check PROVISIO_* environment variables, which override the file`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

provisio could not access a file or directory.

## Things you can try:
- Check the permissions of the installation directory
- Check the permissions of the repository directory`,
	}

	issues = map[Id]*Issue{
		featurePackNotFoundIssue.Id(): featurePackNotFoundIssue,
		descriptorInvalidIssue.Id():   descriptorInvalidIssue,
		resolutionFailedIssue.Id():    resolutionFailedIssue,
		dependencyCycleIssue.Id():     dependencyCycleIssue,
		artifactFailedIssue.Id():      artifactFailedIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForError returns the issue explaining err, or nil when err is of no known
// kind. The most specific match wins.
func ForError(err error) *Issue {
	var cycle *dag.CycleError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cycle):
		return dependencyCycleIssue
	case errors.Is(err, artifact.ErrNotFound):
		return featurePackNotFoundIssue
	case errors.Is(err, fs.ErrPermission):
		return permissionDeniedIssue
	case fperr.IsArtifact(err):
		return artifactFailedIssue
	case fperr.IsDescription(err):
		return descriptorInvalidIssue
	case fperr.IsResolution(err):
		return resolutionFailedIssue
	default:
		return nil
	}
}
