package server

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/learn-overlay/internal/analysis"
	"github.com/jonathan/learn-overlay/internal/keys"
	"github.com/jonathan/learn-overlay/internal/types"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	projects   map[int64]*types.Project
	activity   []types.ActivityRecord
	keyLookups int
	failCreate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: make(map[int64]*types.Project)}
}

func (f *fakeStore) CreateProject(_ context.Context, p *types.Project) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return 0, f.failCreate
	}
	for _, existing := range f.projects {
		if existing.AccessKey == p.AccessKey {
			return 0, errors.New("duplicate access key")
		}
	}
	f.nextID++
	stored := *p
	stored.ID = f.nextID
	stored.FunctionMap = p.FunctionMap.Clone()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.projects[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeStore) GetProjectByKey(_ context.Context, key string) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyLookups++
	for _, p := range f.projects {
		if p.AccessKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetProjectByID(_ context.Context, id int64) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProjects(_ context.Context, limit, offset int) ([]types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.projects))
	for id := range f.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var out []types.Project
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, *f.projects[id])
	}
	return out, nil
}

func (f *fakeStore) UpdateFunctionMap(_ context.Context, id int64, fm types.FunctionMap) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return false, nil
	}
	p.FunctionMap = fm.Clone()
	p.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return false, nil
	}
	delete(f.projects, id)
	kept := f.activity[:0]
	for _, rec := range f.activity {
		if rec.ProjectID != id {
			kept = append(kept, rec)
		}
	}
	f.activity = kept
	return true, nil
}

func (f *fakeStore) LogActivity(_ context.Context, projectID int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, types.ActivityRecord{
		ID:        int64(len(f.activity) + 1),
		ProjectID: projectID,
		Action:    action,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeStore) ListActivity(_ context.Context, projectID int64, _ int) ([]types.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ActivityRecord
	for i := len(f.activity) - 1; i >= 0; i-- {
		if f.activity[i].ProjectID == projectID {
			out = append(out, f.activity[i])
		}
	}
	return out, nil
}

func (f *fakeStore) actions(projectID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, rec := range f.activity {
		if rec.ProjectID == projectID {
			out = append(out, rec.Action)
		}
	}
	return out
}

// fakeAnalyzer validates like the real analyzer and returns queued maps.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	maps  []types.FunctionMap
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (*types.AnalysisResult, error) {
	if err := analysis.Validate(req); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	fm := types.FunctionMap{"main-header": "Top banner"}
	if len(f.maps) > 0 {
		fm = f.maps[0]
		f.maps = f.maps[1:]
	}
	kind := types.TargetPage
	if req.RepoURL != "" {
		kind = types.TargetRepo
	}
	return &types.AnalysisResult{
		AccessKey:   keys.MustIssue(),
		ProjectName: strings.TrimSpace(req.ProjectName),
		Kind:        kind,
		FunctionMap: fm,
	}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
