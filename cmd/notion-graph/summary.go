package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/notion-graph/pkg/graph"
	"github.com/Sternrassler/notion-graph/pkg/ratelimit"
)

// Summary is the YAML report of one run.
type Summary struct {
	RunID       string              `yaml:"run_id"`
	Root        RootSummary         `yaml:"root"`
	Duration    string              `yaml:"duration"`
	WorkDir     string              `yaml:"work_dir,omitempty"`
	Claimed     int                 `yaml:"claimed"`
	Pages       []PageSummary       `yaml:"pages"`
	Collections []CollectionSummary `yaml:"collections,omitempty"`
	Attachments AttachmentSummary   `yaml:"attachments"`
	Users       UserSummary         `yaml:"users"`
	Errors      map[string]string   `yaml:"errors,omitempty"`
	Unresolved  []string            `yaml:"unresolved_references,omitempty"`
	RateLimit   RateLimitSummary    `yaml:"rate_limit"`
	Metrics     map[string]float64  `yaml:"metrics,omitempty"`
}

// RootSummary identifies the entity the run started from.
type RootSummary struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind"`
	Title string `yaml:"title"`
}

// PageSummary describes one expanded page.
type PageSummary struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Parent      string   `yaml:"parent,omitempty"`
	Collection  string   `yaml:"collection,omitempty"`
	Blocks      int      `yaml:"blocks"`
	Subpages    int      `yaml:"subpages,omitempty"`
	Attachments int      `yaml:"attachments,omitempty"`
	Errors      []string `yaml:"errors,omitempty"`
}

// CollectionSummary describes one expanded collection.
type CollectionSummary struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Items    int    `yaml:"items"`
	AllPages int    `yaml:"all_pages"`
}

// AttachmentSummary totals the attachment downloads of a run.
type AttachmentSummary struct {
	Downloaded int    `yaml:"downloaded"`
	Failed     int    `yaml:"failed"`
	Size       string `yaml:"size"`
}

// UserSummary reports the state of the user directory.
type UserSummary struct {
	Known    int  `yaml:"known"`
	Degraded bool `yaml:"degraded,omitempty"`
}

// RateLimitSummary reports rate-limit pauses seen during the run.
type RateLimitSummary struct {
	Hits           int    `yaml:"hits"`
	LastRetryAfter string `yaml:"last_retry_after,omitempty"`
}

func buildSummary(runID string, result *graph.Result, elapsed time.Duration) Summary {
	s := Summary{
		RunID:    runID,
		Duration: elapsed.Round(time.Millisecond).String(),
		WorkDir:  result.WorkDir,
		Claimed:  result.Claimed,
		Users: UserSummary{
			Known:    result.Users.Len(),
			Degraded: result.Users.Degraded(),
		},
	}

	switch {
	case result.RootPage != nil:
		s.Root = RootSummary{ID: result.RootPage.ID, Kind: "page", Title: result.RootPage.Title}
	case result.RootCollection != nil:
		s.Root = RootSummary{ID: result.RootCollection.ID, Kind: "collection", Title: result.RootCollection.Title}
	}

	var total uint64
	for _, p := range result.SortedPages() {
		ps := PageSummary{
			ID:          p.ID,
			Title:       p.Title,
			Collection:  p.CollectionID,
			Blocks:      len(p.Blocks),
			Subpages:    len(p.Subpages),
			Attachments: len(p.Attachments),
		}
		if p.Parent != nil {
			ps.Parent = p.Parent.ID
		}
		for _, err := range p.Errors {
			ps.Errors = append(ps.Errors, err.Error())
		}
		for _, a := range p.Attachments {
			if a.Downloaded() {
				s.Attachments.Downloaded++
				total += uint64(a.Size)
			} else if result.WorkDir != "" {
				s.Attachments.Failed++
			}
		}
		s.Pages = append(s.Pages, ps)
	}
	s.Attachments.Size = humanize.Bytes(total)

	for _, c := range result.SortedCollections() {
		s.Collections = append(s.Collections, CollectionSummary{
			ID:       c.ID,
			Title:    c.Title,
			Items:    len(c.Items),
			AllPages: len(c.AllPages),
		})
	}

	if len(result.Errors) > 0 {
		s.Errors = make(map[string]string, len(result.Errors))
		for id, err := range result.Errors {
			s.Errors[id] = err.Error()
		}
	}

	for _, ref := range result.Unresolved() {
		s.Unresolved = append(s.Unresolved, fmt.Sprintf("%s:%s", ref.Kind, ref.ID))
	}
	sort.Strings(s.Unresolved)
	return s
}

func rateLimitSummary(state ratelimit.RateLimitState) RateLimitSummary {
	rs := RateLimitSummary{Hits: state.Hits}
	if state.LastRetryAfter > 0 {
		rs.LastRetryAfter = state.LastRetryAfter.String()
	}
	return rs
}

func writeSummary(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return enc.Close()
}
