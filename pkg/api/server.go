// Package api pkg/api/server.go exposes the monitoring engine over
// HTTP: inventory CRUD, live status, the trace stream and discovery.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/alerting"
	"github.com/beamstate/beamstate/pkg/catalog"
	"github.com/beamstate/beamstate/pkg/db"
	"github.com/beamstate/beamstate/pkg/discovery"
	httpx "github.com/beamstate/beamstate/pkg/http"
	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/scheduler"
	"github.com/beamstate/beamstate/pkg/status"
	"github.com/beamstate/beamstate/pkg/trace"
)

const defaultTraceLimit = 100

// Server wires HTTP routes to the engine components.
type Server struct {
	store     *db.Store
	engine    *status.Engine
	bus       *trace.Bus
	scanner   *discovery.Scanner
	importer  *discovery.Importer
	throttler *alerting.Throttler
	sched     *scheduler.Scheduler
	router    *mux.Router
	log       zerolog.Logger
}

// NewServer builds the router. All dependencies are required.
func NewServer(
	store *db.Store,
	engine *status.Engine,
	bus *trace.Bus,
	scanner *discovery.Scanner,
	importer *discovery.Importer,
	throttler *alerting.Throttler,
	sched *scheduler.Scheduler,
) *Server {
	s := &Server{
		store:     store,
		engine:    engine,
		bus:       bus,
		scanner:   scanner,
		importer:  importer,
		throttler: throttler,
		sched:     sched,
		router:    mux.NewRouter(),
		log:       logger.Component("api"),
	}
	s.setupRoutes()

	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(httpx.CommonMiddleware)
	s.router.Use(httpx.RequestLogger(s.log))

	s.router.HandleFunc("/api/groups", s.getGroups).Methods("GET")
	s.router.HandleFunc("/api/groups", s.createGroup).Methods("POST")
	s.router.HandleFunc("/api/groups/{id}", s.updateGroup).Methods("PUT")
	s.router.HandleFunc("/api/groups/{id}", s.deleteGroup).Methods("DELETE")

	s.router.HandleFunc("/api/nodes", s.getNodes).Methods("GET")
	s.router.HandleFunc("/api/nodes", s.createNode).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}", s.updateNode).Methods("PUT")
	s.router.HandleFunc("/api/nodes/{id}", s.deleteNode).Methods("DELETE")

	s.router.HandleFunc("/api/metrics/definitions", s.getMetricDefinitions).Methods("GET")
	s.router.HandleFunc("/api/nodes/{id}/metrics", s.getNodeMetricConfigs).Methods("GET")
	s.router.HandleFunc("/api/nodes/{id}/metrics", s.createNodeMetricConfig).Methods("POST")
	s.router.HandleFunc("/api/metrics/configs/{id}", s.updateNodeMetricConfig).Methods("PUT")
	s.router.HandleFunc("/api/metrics/configs/{id}", s.deleteNodeMetricConfig).Methods("DELETE")

	s.router.HandleFunc("/api/trace", s.getTrace).Methods("GET")
	s.router.HandleFunc("/api/trace/ws", s.streamTrace).Methods("GET")

	s.router.HandleFunc("/api/discovery/scan", s.startScan).Methods("POST")
	s.router.HandleFunc("/api/discovery/scan", s.cancelScan).Methods("DELETE")
	s.router.HandleFunc("/api/discovery/status", s.getScanStatus).Methods("GET")
	s.router.HandleFunc("/api/discovery/results", s.getScanResults).Methods("GET")
	s.router.HandleFunc("/api/discovery/import", s.importResults).Methods("POST")

	s.router.HandleFunc("/api/maintenance", s.getMaintenance).Methods("GET")
	s.router.HandleFunc("/api/maintenance", s.setMaintenance).Methods("POST")
}

// nodeView is a node joined with its live status snapshot.
type nodeView struct {
	models.Node
	Status models.StatusSnapshot `json:"status"`
}

func (s *Server) getNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.Nodes(r.Context())
	if err != nil {
		s.serverError(w, err, "failed to list nodes")
		return
	}

	views := make([]nodeView, 0, len(nodes))

	for i := range nodes {
		view := nodeView{Node: nodes[i]}

		if snap, ok := s.engine.Snapshot(nodes[i].ID); ok {
			view.Status = snap
		} else {
			view.Status = models.StatusSnapshot{
				NodeID:   nodes[i].ID,
				NodeName: nodes[i].Name,
				IP:       nodes[i].IP,
				Status:   models.StatusWaiting,
			}
		}

		views = append(views, view)
	}

	s.writeJSON(w, views)
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var node models.Node
	if !s.decodeJSON(w, r, &node) {
		return
	}

	if node.IP == "" || node.GroupID == 0 {
		http.Error(w, "ip and group_id are required", http.StatusBadRequest)
		return
	}

	if node.Name == "" {
		node.Name = node.IP
	}

	if err := s.store.CreateNode(r.Context(), &node); err != nil {
		s.serverError(w, err, "failed to create node")
		return
	}

	s.resync(r)
	s.writeJSON(w, node)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var node models.Node
	if !s.decodeJSON(w, r, &node) {
		return
	}

	node.ID = id

	if err := s.store.UpdateNode(r.Context(), &node); err != nil {
		s.storeError(w, err, "failed to update node")
		return
	}

	s.resync(r)
	s.writeJSON(w, node)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteNode(r.Context(), id); err != nil {
		s.storeError(w, err, "failed to delete node")
		return
	}

	s.resync(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.Groups(r.Context())
	if err != nil {
		s.serverError(w, err, "failed to list groups")
		return
	}

	s.writeJSON(w, groups)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var group models.Group
	if !s.decodeJSON(w, r, &group) {
		return
	}

	if group.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := s.store.CreateGroup(r.Context(), &group); err != nil {
		s.serverError(w, err, "failed to create group")
		return
	}

	s.resync(r)
	s.writeJSON(w, group)
}

func (s *Server) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var group models.Group
	if !s.decodeJSON(w, r, &group) {
		return
	}

	group.ID = id

	if err := s.store.UpdateGroup(r.Context(), &group); err != nil {
		s.storeError(w, err, "failed to update group")
		return
	}

	s.resync(r)
	s.writeJSON(w, group)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteGroup(r.Context(), id); err != nil {
		s.storeError(w, err, "failed to delete group")
		return
	}

	s.resync(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMetricDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := s.store.MetricDefinitions(r.Context())
	if err != nil {
		s.serverError(w, err, "failed to list metric definitions")
		return
	}

	s.writeJSON(w, defs)
}

func (s *Server) getNodeMetricConfigs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	configs, err := s.store.NodeMetricConfigsForNode(r.Context(), id)
	if err != nil {
		s.serverError(w, err, "failed to list metric configs")
		return
	}

	s.writeJSON(w, configs)
}

func (s *Server) createNodeMetricConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var cfg models.NodeMetricConfig
	if !s.decodeJSON(w, r, &cfg) {
		return
	}

	cfg.NodeID = id

	if err := s.store.CreateNodeMetricConfig(r.Context(), &cfg); err != nil {
		s.configError(w, err)
		return
	}

	s.resync(r)
	s.writeJSON(w, cfg)
}

func (s *Server) updateNodeMetricConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var cfg models.NodeMetricConfig
	if !s.decodeJSON(w, r, &cfg) {
		return
	}

	cfg.ID = id

	if err := s.store.UpdateNodeMetricConfig(r.Context(), &cfg); err != nil {
		s.configError(w, err)
		return
	}

	s.resync(r)
	s.writeJSON(w, cfg)
}

func (s *Server) deleteNodeMetricConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteNodeMetricConfig(r.Context(), id); err != nil {
		s.storeError(w, err, "failed to delete metric config")
		return
	}

	s.resync(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTrace(w http.ResponseWriter, r *http.Request) {
	limit := defaultTraceLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		limit = parsed
	}

	s.writeJSON(w, s.bus.Recent(limit))
}

type scanRequest struct {
	CIDR string `json:"cidr"`
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	scanID, err := s.scanner.Start(req.CIDR)

	switch {
	case errors.Is(err, discovery.ErrScanActive):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, discovery.ErrInvalidCIDR),
		errors.Is(err, discovery.ErrRangeTooBig):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.serverError(w, err, "failed to start scan")
		return
	}

	s.writeJSON(w, map[string]string{"scan_id": scanID})
}

func (s *Server) cancelScan(w http.ResponseWriter, _ *http.Request) {
	s.scanner.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getScanStatus(w http.ResponseWriter, _ *http.Request) {
	progress, err := s.scanner.Progress()
	if errors.Is(err, discovery.ErrNoScan) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.writeJSON(w, progress)
}

func (s *Server) getScanResults(w http.ResponseWriter, _ *http.Request) {
	results, err := s.scanner.Results()
	if errors.Is(err, discovery.ErrNoScan) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.writeJSON(w, results)
}

type importRequest struct {
	GroupID int64                    `json:"group_id"`
	Results []models.DiscoveryResult `json:"results"`
}

func (s *Server) importResults(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.GroupID == 0 {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}

	if _, err := s.store.GroupByID(r.Context(), req.GroupID); err != nil {
		s.storeError(w, err, "failed to load group")
		return
	}

	summary, err := s.importer.Import(r.Context(), req.GroupID, req.Results)
	if err != nil {
		s.serverError(w, err, "import failed")
		return
	}

	s.resync(r)
	s.writeJSON(w, summary)
}

type maintenanceState struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) getMaintenance(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, maintenanceState{Enabled: s.throttler.Maintenance()})
}

func (s *Server) setMaintenance(w http.ResponseWriter, r *http.Request) {
	var state maintenanceState
	if !s.decodeJSON(w, r, &state) {
		return
	}

	s.throttler.SetMaintenance(state.Enabled)
	s.writeJSON(w, state)
}

// resync nudges the scheduler so configuration edits apply without
// waiting for the periodic pass.
func (s *Server) resync(r *http.Request) {
	if err := s.sched.Sync(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("scheduler resync failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}

	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func (s *Server) serverError(w http.ResponseWriter, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// storeError maps ErrNotFound to 404 and everything else to 500.
func (s *Server) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.serverError(w, err, msg)
}

// configError surfaces binding validation problems as client errors.
func (s *Server) configError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrIndexRequired), errors.Is(err, catalog.ErrIndexUnused):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.serverError(w, err, "failed to save metric config")
	}
}
