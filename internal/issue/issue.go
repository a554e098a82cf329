// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	AccessDeniedId Id = iota + 1
	TokenInvalidId
	RateLimitedId
	NetworkFailureId
	ReleaseNotFoundId
	DownloadFailedId
	InstallFailedId
	VerificationFailedId
	ConfigLoadFailedId
	NotInteractiveId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with a glamour style ("auto", "dark", "light",
// "notty", or a path to a style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	accessDeniedIssue = &Issue{
		id: AccessDeniedId,
		mdMsg: `
# Access denied!

The repository exists but your credentials cannot read it, or it is private
and you are not signed in.

## Things you can try
- Put a personal access token with read access in your token file:
~~~
$ hdr-installer config path
~~~
  The token file is ` + "`oauth.txt`" + ` next to the config file.
- Or export it for one run:
~~~
$ HDR_INSTALLER_TOKEN=ghp_... hdr-installer
~~~
- Ask a maintainer to add your account to the repository.`,
		extLinks: []HttpLink{"https://docs.github.com/en/authentication/keeping-your-account-and-data-secure/managing-your-personal-access-tokens"},
	}

	tokenInvalidIssue = &Issue{
		id: TokenInvalidId,
		mdMsg: `
# Your token was rejected!

GitHub did not accept the token that was sent.

## Things you can try
- Check that the token has not expired or been revoked
- Make sure the token file holds only the token, on a single line
- Remove the token file to continue anonymously with public channels`,
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub rate limit reached!

Anonymous clients get 60 API requests per hour.

## Things you can try
- Wait until the limit resets and try again
- Configure a personal access token, which raises the limit to 5000 requests per hour`,
	}

	networkFailureIssue = &Issue{
		id: NetworkFailureId,
		mdMsg: `
# Could not reach GitHub!

The release index could not be fetched.

## Things you can try
- Check your internet connection
- If you are behind a proxy, set ` + "`HTTPS_PROXY`" + `
- Check ` + "`api.base_url`" + ` in your configuration`,
		extLinks: []HttpLink{"https://www.githubstatus.com"},
	}

	releaseNotFoundIssue = &Issue{
		id: ReleaseNotFoundId,
		mdMsg: `
# Release not found!

The release does not exist, or it has no files to install.

## Things you can try
- List the available releases:
~~~
$ hdr-installer list
~~~
- Check the tag spelling, tags are case sensitive`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Download failed!

A file could not be downloaded completely. Nothing from the interrupted
file was installed.

## Things you can try
- Retry, downloads restart from the beginning
- Check that your connection is stable for large files`,
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Install failed!

A downloaded file could not be placed in the install root.

## Things you can try
- Check that the install root is writable and has enough free space
- Make sure the SD card is mounted and not write protected
- Set a different root with ` + "`--install-root`",
	}

	verificationFailedIssue = &Issue{
		id: VerificationFailedId,
		mdMsg: `
# Verification failed!

A downloaded file does not match its published checksum or signature. It was
discarded and not installed.

## Things you can try
- Retry the download, the file may have been corrupted in transit
- If it keeps failing, report it to the release maintainers`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or did not match the schema.

## Things you can try
- Print the effective configuration:
~~~
$ hdr-installer config show
~~~
- Recreate a default configuration after moving yours aside:
~~~
$ hdr-installer config init
~~~`,
	}

	notInteractiveIssue = &Issue{
		id: NotInteractiveId,
		mdMsg: `
# Not running in a terminal!

A confirmation was needed but stdin is not a terminal.

## Things you can try
- Pass ` + "`--yes`" + ` to skip the confirmation`,
	}

	issues = map[Id]*Issue{
		accessDeniedIssue.Id():       accessDeniedIssue,
		tokenInvalidIssue.Id():       tokenInvalidIssue,
		rateLimitedIssue.Id():        rateLimitedIssue,
		networkFailureIssue.Id():     networkFailureIssue,
		releaseNotFoundIssue.Id():    releaseNotFoundIssue,
		downloadFailedIssue.Id():     downloadFailedIssue,
		installFailedIssue.Id():      installFailedIssue,
		verificationFailedIssue.Id(): verificationFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		notInteractiveIssue.Id():     notInteractiveIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
