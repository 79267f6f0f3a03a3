package handlers

import (
	"html/template"
	"net/http"
	"sync"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	Ready    bool
	Current  string
	Progress int
	Steps    []StartupStep
}

type StartupStep struct {
	Name      string
	Completed bool
}

// Startup step names, in the order main runs them
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepTemplates  = "Loading templates"
	StepCatalog    = "Checking song catalog"
	StepServices   = "Starting game service"
)

var startupStatus = newStartupStatus()

func newStartupStatus() *StartupStatus {
	names := []string{StepDatabase, StepMigrations, StepTemplates, StepCatalog, StepServices}
	steps := make([]StartupStep, len(names))
	for i, name := range names {
		steps[i] = StartupStep{Name: name}
	}
	return &StartupStatus{Current: "Initializing...", Steps: steps}
}

// SetCurrentStep updates the current initialization step
func SetCurrentStep(step string) {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()
	startupStatus.Current = step
}

// CompleteStep marks a step as completed and updates progress
func CompleteStep(stepName string) {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()

	completed := 0
	for i := range startupStatus.Steps {
		if startupStatus.Steps[i].Name == stepName {
			startupStatus.Steps[i].Completed = true
		}
		if startupStatus.Steps[i].Completed {
			completed++
		}
	}
	startupStatus.Progress = (completed * 100) / len(startupStatus.Steps)
}

// MarkReady marks the server as fully initialized
func MarkReady() {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()
	startupStatus.Ready = true
	startupStatus.Current = "Server ready"
	startupStatus.Progress = 100
}

// IsReady returns whether the server is fully initialized
func IsReady() bool {
	startupStatus.mu.RLock()
	defer startupStatus.mu.RUnlock()
	return startupStatus.Ready
}

// RequireReady serves the startup page until initialization finishes
func RequireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsReady() && r.URL.Path != "/healthz" {
			ShowStartupStatus(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var startupTemplate = template.Must(template.New("startup").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta http-equiv="refresh" content="2">
	<title>Bollywoodle - Starting Up</title>
	<style>
		body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #1a1025; color: #f5e6ff; display: flex; justify-content: center; padding: 40px; }
		.container { max-width: 420px; width: 100%; }
		.bar { height: 10px; background: #3a2a4a; border-radius: 5px; overflow: hidden; }
		.fill { height: 100%; background: #e91e63; }
		li.done { color: #4caf50; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Bollywoodle</h1>
		<div class="bar"><div class="fill" style="width: {{.Progress}}%"></div></div>
		<p>{{.Progress}}% complete</p>
		<ul>
			{{range .Steps}}<li class="{{if .Completed}}done{{end}}">{{if .Completed}}✓{{else}}○{{end}} {{.Name}}</li>
			{{end}}
		</ul>
		<p><em>{{.Current}}</em></p>
	</div>
</body>
</html>`))

// ShowStartupStatus displays the startup status page
func ShowStartupStatus(w http.ResponseWriter, r *http.Request) {
	startupStatus.mu.RLock()
	defer startupStatus.mu.RUnlock()

	if startupStatus.Ready {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	startupTemplate.Execute(w, startupStatus)
}

// Healthz reports readiness for load balancers
func Healthz(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
