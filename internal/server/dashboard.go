package server

import (
	"bytes"
	"html/template"
	"io"
	"net/http"

	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/dashboard"
	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

const maxDraftBytes = 64 << 10

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type instanceListData struct {
	Instances []instanceItem
}

type instanceItem struct {
	ID        string
	Name      string
	CreatedAt string
}

type modalListData struct {
	InstanceID string
	Banner     string
	Cards      []dashboard.Card
}

const dashboardCSS = `body{font-family:system-ui,sans-serif;margin:2rem;color:#111827}
table{border-collapse:collapse;width:100%}
th,td{text-align:left;padding:.5rem;border-bottom:1px solid #e5e7eb}
.banner{background:#fef2f2;color:#991b1b;padding:.75rem;border-radius:6px;margin-bottom:1rem}
.active{color:#047857}.inactive{color:#6b7280}`

var (
	layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}} · ckmodal</title><style>{{.CSS}}</style></head>
<body><nav><a href="/dashboard">Instances</a> · <a href="/dashboard?logout=1">Log out</a></nav>
{{.Content}}
</body></html>`))

	instancesTmpl = template.Must(template.New("instances").Parse(`<h1>Instances</h1>
{{if .Instances}}<table><tr><th>Name</th><th>ID</th><th>Created</th></tr>
{{range .Instances}}<tr><td><a href="/dashboard/instances/{{.ID}}">{{.Name}}</a></td><td>{{.ID}}</td><td>{{.CreatedAt}}</td></tr>
{{end}}</table>{{else}}<p>No instances yet. Run <code>ckmodal instances add</code>.</p>{{end}}`))

	modalsTmpl = template.Must(template.New("modals").Parse(`<h1>Payment modals</h1>
{{if .Banner}}<div class="banner">{{.Banner}} <a href="/dashboard/instances/{{.InstanceID}}">Retry</a></div>{{end}}
{{if .Cards}}<table><tr><th>Name</th><th>Company</th><th>Status</th><th>Tokens</th><th>Views</th><th>Conversions</th><th>Rate</th><th>Updated</th></tr>
{{range .Cards}}<tr><td>{{.Name}}</td><td>{{.CompanyName}}</td><td class="{{if .Active}}active{{else}}inactive{{end}}">{{.Status}}</td><td>{{range $i, $t := .Tokens}}{{if $i}}, {{end}}{{$t}}{{end}}</td><td>{{.Views}}</td><td>{{.Conversions}}</td><td>{{printf "%.1f%%" .ConversionRate}}</td><td>{{.Updated}}</td></tr>
{{end}}</table>{{else}}<p>No payment modals yet.</p>{{end}}`))
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	instances, err := s.store.ListInstances(r.Context())
	if err != nil {
		http.Error(w, "Failed to load instances", http.StatusInternalServerError)
		return
	}

	items := make([]instanceItem, len(instances))
	for i, inst := range instances {
		items[i] = instanceItem{ID: inst.ID, Name: inst.Name, CreatedAt: humanize.Time(inst.CreatedAt)}
	}

	s.renderDashboard(w, "Instances", instancesTmpl, instanceListData{Instances: items})
}

func (s *Server) handleDashboardInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")
	c, err := s.controllerFor(r.Context(), instanceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	view := dashboard.NewListView(c)
	view.Load(r.Context())
	view.LoadStats(r.Context())

	s.renderDashboard(w, "Payment modals", modalsTmpl, modalListData{
		InstanceID: instanceID,
		Banner:     view.Banner(),
		Cards:      view.Cards(),
	})
}

func (s *Server) renderDashboard(w http.ResponseWriter, title string, content *template.Template, data interface{}) {
	var contentBuf bytes.Buffer
	if err := content.Execute(&contentBuf, data); err != nil {
		s.log.WithError(err).Error("failed to render dashboard")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layoutTmpl.Execute(w, layoutData{
		Title:   title,
		CSS:     template.CSS(dashboardCSS),
		Content: template.HTML(contentBuf.String()),
	}); err != nil {
		s.log.WithError(err).Error("failed to render layout")
	}
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := s.store.ListInstances(r.Context())
	if err != nil {
		writeDomainError(w, &modal.LoadError{Op: "load instances", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instances": instances})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.store.ListTokens(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		writeDomainError(w, &modal.LoadError{Op: "load tokens", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

// withController resolves the instance's controller or writes the error.
func (s *Server) withController(w http.ResponseWriter, r *http.Request) (*controller.Controller, bool) {
	c, err := s.controllerFor(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return c, true
}

type modalListResponse struct {
	Modals []modal.Config `json:"modals"`
	Error  string         `json:"error,omitempty"`
}

func (s *Server) handleListModals(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		s.reload(r.Context(), c)
	}

	resp := modalListResponse{Modals: c.Modals()}
	if err := c.LastError(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func readDraft(r *http.Request) (modal.Draft, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDraftBytes))
	if err != nil {
		return modal.Draft{}, err
	}
	return modal.DecodeDraft(body)
}

func (s *Server) handleCreateModal(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	d, err := readDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	created, err := c.Create(r.Context(), d)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetModal(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	modalID := chi.URLParam(r, "modalID")
	cfg, found := c.Get(modalID)
	if !found {
		writeDomainError(w, &modal.NotFoundError{ModalID: modalID})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateModal(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	d, err := readDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	updated, err := c.Update(r.Context(), chi.URLParam(r, "modalID"), d)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteModal(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	// Deletion is irreversible, so the caller has to confirm explicitly
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", "pass confirm=true to delete this modal")
		return
	}

	if err := c.Delete(r.Context(), chi.URLParam(r, "modalID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleModal(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	cfg, err := c.ToggleStatus(r.Context(), chi.URLParam(r, "modalID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleModalAnalytics(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	rng, err := dashboard.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}

	view := dashboard.NewAnalyticsView(c, chi.URLParam(r, "modalID"))
	view.SetRange(rng)

	load := view.Load
	if r.URL.Query().Get("refresh") == "true" {
		load = view.Refresh
	}
	if err := load(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Summary())
}

type embedResponse struct {
	ModalID   string                 `json:"modalId"`
	Framework snippets.Framework     `json:"framework"`
	Code      string                 `json:"code"`
	Files     []snippets.SnippetFile `json:"files"`
}

func (s *Server) handleModalEmbed(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	fw, err := snippets.ParseFramework(r.URL.Query().Get("framework"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FRAMEWORK", err.Error())
		return
	}

	modalID := chi.URLParam(r, "modalID")
	code, err := c.GenerateEmbedCode(modalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	files, err := c.GenerateSnippet(modalID, fw)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, embedResponse{ModalID: modalID, Framework: fw, Code: code, Files: files})
}

func (s *Server) handleModalPreview(w http.ResponseWriter, r *http.Request) {
	c, ok := s.withController(w, r)
	if !ok {
		return
	}
	vp, err := snippets.ParseViewport(r.URL.Query().Get("viewport"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_VIEWPORT", err.Error())
		return
	}

	html, err := c.Preview(chi.URLParam(r, "modalID"), vp)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}
