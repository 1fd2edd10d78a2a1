//nolint:revive // types is a standard Go package name pattern
package types

// TargetKind identifies which extractor produced a digest.
type TargetKind string

const (
	// TargetPage is a live web page rendered in a headless browser
	TargetPage TargetKind = "page"
	// TargetRepo is a cloned source repository
	TargetRepo TargetKind = "repo"
)

// Link is an anchor's visible text and its resolved target.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// FormField describes a single input, textarea or select element.
type FormField struct {
	Tag         string `json:"tag"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Form groups the fields of one form element.
type Form struct {
	Action string      `json:"action,omitempty"`
	Fields []FormField `json:"fields"`
}

// PageDigest is the bounded structural summary of a rendered page.
type PageDigest struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
	Links      []Link   `json:"links"`
	Forms      []Form   `json:"forms"`
}

// RepoFile is one selected source file with its content already truncated.
type RepoFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Extension string `json:"extension"`
	Content   string `json:"content"`
}

// RepoDigest is the capped list of files selected from a cloned repository.
type RepoDigest struct {
	URL   string     `json:"url"`
	Files []RepoFile `json:"files"`
}

// ContentDigest carries exactly one of Page or Repo, matching Kind.
type ContentDigest struct {
	Kind TargetKind  `json:"kind"`
	Page *PageDigest `json:"page,omitempty"`
	Repo *RepoDigest `json:"repo,omitempty"`
}

// NewPageContent wraps a page digest.
func NewPageContent(p *PageDigest) *ContentDigest {
	return &ContentDigest{Kind: TargetPage, Page: p}
}

// NewRepoContent wraps a repository digest.
func NewRepoContent(r *RepoDigest) *ContentDigest {
	return &ContentDigest{Kind: TargetRepo, Repo: r}
}
