// Package types provides type definitions for structured data used throughout the learn-overlay system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"sort"
	"time"
)

// FunctionMap maps an element id (e.g. "main-header") to a short explanation.
// A map produced by an analysis run is never mutated; re-analysis replaces it.
type FunctionMap map[string]string

// Clone returns an independent copy of the map.
func (m FunctionMap) Clone() FunctionMap {
	out := make(FunctionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the element ids in sorted order.
func (m FunctionMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Project is a registered analysis target together with its generated map.
// Exactly one of ScrapeURL and RepoURL is set.
type Project struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	AccessKey   string      `json:"access_key"`
	ScrapeURL   *string     `json:"scrape_url,omitempty"`
	RepoURL     *string     `json:"repo_url,omitempty"`
	FunctionMap FunctionMap `json:"function_map"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Kind reports which target the project was created from.
func (p *Project) Kind() TargetKind {
	if p.RepoURL != nil && *p.RepoURL != "" {
		return TargetRepo
	}
	return TargetPage
}

// Target returns the URL that the project analyzes.
func (p *Project) Target() string {
	if p.RepoURL != nil && *p.RepoURL != "" {
		return *p.RepoURL
	}
	if p.ScrapeURL != nil {
		return *p.ScrapeURL
	}
	return ""
}

// Activity labels written to the activity log.
const (
	ActivityProjectCreated    = "project_created"
	ActivityProjectReanalyzed = "project_reanalyzed"
)

// ActivityRecord is one append-only entry of the project activity log.
type ActivityRecord struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisResult is what a successful analysis hands back to the caller for persistence.
type AnalysisResult struct {
	AccessKey   string      `json:"access_key"`
	ProjectName string      `json:"project_name"`
	Kind        TargetKind  `json:"kind"`
	FunctionMap FunctionMap `json:"function_map"`
}
