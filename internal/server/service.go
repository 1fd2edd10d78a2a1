package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonathan/learn-overlay/internal/analysis"
	"github.com/jonathan/learn-overlay/internal/keys"
	"github.com/jonathan/learn-overlay/internal/types"
)

// DefaultLookupCacheSize bounds the number of function maps kept in memory
// for the public lookup endpoint.
const DefaultLookupCacheSize = 1024

// Store is the persistence surface the service needs. *db.DB satisfies it.
type Store interface {
	CreateProject(ctx context.Context, p *types.Project) (int64, error)
	GetProjectByKey(ctx context.Context, key string) (*types.Project, error)
	GetProjectByID(ctx context.Context, id int64) (*types.Project, error)
	ListProjects(ctx context.Context, limit, offset int) ([]types.Project, error)
	UpdateFunctionMap(ctx context.Context, id int64, fm types.FunctionMap) (bool, error)
	DeleteProject(ctx context.Context, id int64) (bool, error)
	LogActivity(ctx context.Context, projectID int64, action string) error
	ListActivity(ctx context.Context, projectID int64, limit int) ([]types.ActivityRecord, error)
}

// ProjectAnalyzer runs an analysis. *analysis.Analyzer satisfies it.
type ProjectAnalyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*types.AnalysisResult, error)
}

// ProjectService owns the project lifecycle and the lookup cache.
type ProjectService struct {
	store    Store
	analyzer ProjectAnalyzer
	cache    *lru.Cache[string, types.FunctionMap]

	// generation is bumped by every invalidation. A lookup only caches what
	// it read if no invalidation happened since before its store read.
	mu         sync.Mutex
	generation uint64
}

// NewProjectService creates a service with a lookup cache of cacheSize entries.
func NewProjectService(store Store, analyzer ProjectAnalyzer, cacheSize int) (*ProjectService, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultLookupCacheSize
	}
	cache, err := lru.New[string, types.FunctionMap](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}
	return &ProjectService{store: store, analyzer: analyzer, cache: cache}, nil
}

// Create analyzes the target, persists the project and records the creation.
func (s *ProjectService) Create(ctx context.Context, req *types.CreateProjectRequest) (*types.Project, error) {
	result, err := s.analyzer.Analyze(ctx, analysis.Request{
		ProjectName: req.Name,
		ScrapeURL:   req.ScrapeURL,
		RepoURL:     req.RepoURL,
	})
	if err != nil {
		return nil, err
	}

	project := &types.Project{
		Name:        result.ProjectName,
		AccessKey:   result.AccessKey,
		ScrapeURL:   optional(req.ScrapeURL),
		RepoURL:     optional(req.RepoURL),
		FunctionMap: result.FunctionMap,
	}

	id, err := s.store.CreateProject(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to store project: %w", err)
	}
	project.ID = id

	if err := s.store.LogActivity(ctx, id, types.ActivityProjectCreated); err != nil {
		log.Printf("[PROJECTS] failed to log activity for project %d: %v", id, err)
	}
	log.Printf("[PROJECTS] created project %d (%s, %d entries)", id, project.Kind(), len(project.FunctionMap))
	return project, nil
}

// Get returns a project by id.
func (s *ProjectService) Get(ctx context.Context, id int64) (*types.Project, error) {
	project, err := s.store.GetProjectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, &ErrProjectNotFound{ID: id}
	}
	return project, nil
}

// List returns a page of projects.
func (s *ProjectService) List(ctx context.Context, limit, offset int) ([]types.Project, error) {
	projects, err := s.store.ListProjects(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Reanalyze regenerates the function map of an existing project. The access
// key is kept so embedded plugins keep working.
func (s *ProjectService) Reanalyze(ctx context.Context, id int64) (*types.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req := analysis.Request{ProjectName: project.Name}
	if project.Kind() == types.TargetRepo {
		req.RepoURL = project.Target()
	} else {
		req.ScrapeURL = project.Target()
	}

	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateFunctionMap(ctx, id, result.FunctionMap)
	if err != nil {
		return nil, fmt.Errorf("failed to store function map: %w", err)
	}
	if !updated {
		// Deleted while the analysis was running.
		return nil, &ErrProjectNotFound{ID: id}
	}
	s.invalidate(project.AccessKey)

	if err := s.store.LogActivity(ctx, id, types.ActivityProjectReanalyzed); err != nil {
		log.Printf("[PROJECTS] failed to log activity for project %d: %v", id, err)
	}

	project.FunctionMap = result.FunctionMap
	return project, nil
}

// Delete removes a project; its access key stops resolving immediately.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	project, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteProject(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.invalidate(project.AccessKey)
	if !deleted {
		return &ErrProjectNotFound{ID: id}
	}
	log.Printf("[PROJECTS] deleted project %d", id)
	return nil
}

// Activity returns the activity log of a project, newest first.
func (s *ProjectService) Activity(ctx context.Context, id int64, limit int) ([]types.ActivityRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.store.ListActivity(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return records, nil
}

// Lookup resolves an access key to its function map.
func (s *ProjectService) Lookup(ctx context.Context, key string) (types.FunctionMap, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &ErrValidation{Field: "key", Message: "access key is required"}
	}
	if !keys.Valid(key) {
		return nil, &ErrValidation{Field: "key", Message: "malformed access key"}
	}

	if fm, ok := s.cache.Get(key); ok {
		return fm.Clone(), nil
	}

	s.mu.Lock()
	seen := s.generation
	s.mu.Unlock()

	project, err := s.store.GetProjectByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up key: %w", err)
	}
	if project == nil {
		return nil, &ErrProjectNotFound{Key: key}
	}

	s.mu.Lock()
	if s.generation == seen {
		s.cache.Add(key, project.FunctionMap.Clone())
	}
	s.mu.Unlock()
	return project.FunctionMap, nil
}

// invalidate drops key from the lookup cache and voids any lookup whose
// store read may predate the change.
func (s *ProjectService) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.cache.Remove(key)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
