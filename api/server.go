package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/governance/core"
)

// Server exposes the governance engine over HTTP. Caller identity is taken
// from the request body; authenticating it is the host's concern.
type Server struct {
	engine *core.Engine
	router *mux.Router
	server *http.Server
	logger *logrus.Logger
}

func NewServer(engine *core.Engine, port uint64, registry *prometheus.Registry, logger *logrus.Logger) *Server {
	s := &Server{
		engine: engine,
		router: mux.NewRouter(),
		logger: logger,
	}
	s.setupRoutes(registry)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.HandleFunc("/api/proposals", s.handleSubmitProposal).Methods("POST")
	s.router.HandleFunc("/api/proposals", s.handleListProposals).Methods("GET")
	s.router.HandleFunc("/api/proposals/{id}", s.handleGetProposal).Methods("GET")
	s.router.HandleFunc("/api/proposals/{id}/outcome", s.handleProposalOutcome).Methods("GET")
	s.router.HandleFunc("/api/proposals/{id}/votes", s.handleCastVote).Methods("POST")
	s.router.HandleFunc("/api/proposals/{id}/finalize", s.handleFinalizeProposal).Methods("POST")
	s.router.HandleFunc("/api/proposals/{id}/execute", s.handleExecuteProposal).Methods("POST")
	s.router.HandleFunc("/api/admin/quorum", s.handleUpdateQuorum).Methods("POST")
	s.router.HandleFunc("/api/admin/deposit", s.handleUpdateDeposit).Methods("POST")
	s.router.HandleFunc("/api/admin/timelock", s.handleUpdateTimelock).Methods("POST")
	s.router.HandleFunc("/api/admin/voting-period", s.handleUpdateVotingPeriod).Methods("POST")
	if registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
}

// Router returns the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Infof("api listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type proposalResponse struct {
	ID           uint64   `json:"id"`
	Proposer     string   `json:"proposer"`
	Description  string   `json:"description"`
	Targets      []string `json:"targets"`
	Payloads     []string `json:"payloads"`
	Deposit      string   `json:"deposit"`
	VotingEnd    int64    `json:"voting_end"`
	Eta          int64    `json:"eta"`
	VotesFor     string   `json:"votes_for"`
	VotesAgainst string   `json:"votes_against"`
	Finalized    bool     `json:"finalized"`
	Status       string   `json:"status"`
	Outcome      string   `json:"outcome"`
}

func toProposalResponse(p *core.Proposal) *proposalResponse {
	targets := make([]string, len(p.Targets))
	for i, t := range p.Targets {
		targets[i] = t.Hex()
	}
	payloads := make([]string, len(p.Payloads))
	for i, payload := range p.Payloads {
		payloads[i] = hexutil.Encode(payload)
	}
	return &proposalResponse{
		ID:           p.ID,
		Proposer:     p.Proposer.Hex(),
		Description:  p.Description,
		Targets:      targets,
		Payloads:     payloads,
		Deposit:      p.Deposit.String(),
		VotingEnd:    p.VotingEnd,
		Eta:          p.Eta,
		VotesFor:     p.VotesFor.String(),
		VotesAgainst: p.VotesAgainst.String(),
		Finalized:    p.Finalized,
		Status:       p.Status().String(),
		Outcome:      p.Outcome.String(),
	}
}

type submitProposalRequest struct {
	From        string   `json:"from"`
	Description string   `json:"description"`
	Targets     []string `json:"targets"`
	Payloads    []string `json:"payloads"`
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	from, err := parseAddress(req.From)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	targets := make([]common.Address, 0, len(req.Targets))
	for _, t := range req.Targets {
		target, err := parseAddress(t)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
		targets = append(targets, target)
	}
	payloads := make([][]byte, 0, len(req.Payloads))
	for _, p := range req.Payloads {
		payload, err := hexutil.Decode(p)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, errors.Wrapf(err, "payload %q", p))
			return
		}
		payloads = append(payloads, payload)
	}

	id, err := s.engine.SubmitProposal(from, req.Description, targets, payloads)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

type castVoteRequest struct {
	From    string `json:"from"`
	Support bool   `json:"support"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	from, err := parseAddress(req.From)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.CastVote(from, id, req.Support); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "support": req.Support})
}

func (s *Server) handleFinalizeProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.FinalizeProposal(id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	p, err := s.engine.GetProposal(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.ExecuteProposal(r.Context(), id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	p, err := s.engine.GetProposal(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.engine.GetProposal(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.engine.ListProposals()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	out := make([]*proposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, toProposalResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProposalOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	outcome, err := s.engine.ProposalOutcome(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "outcome": outcome.String()})
}

type adminRequest struct {
	From    string `json:"from"`
	Percent uint64 `json:"percent,omitempty"`
	Amount  uint64 `json:"amount,omitempty"`
	Seconds uint64 `json:"seconds,omitempty"`
}

func (s *Server) decodeAdmin(w http.ResponseWriter, r *http.Request) (common.Address, *adminRequest, bool) {
	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return common.Address{}, nil, false
	}
	from, err := parseAddress(req.From)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return common.Address{}, nil, false
	}
	return from, &req, true
}

func (s *Server) handleUpdateQuorum(w http.ResponseWriter, r *http.Request) {
	from, req, ok := s.decodeAdmin(w, r)
	if !ok {
		return
	}
	if err := s.engine.UpdateQuorum(from, req.Percent); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quorum_percent": req.Percent})
}

func (s *Server) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	from, req, ok := s.decodeAdmin(w, r)
	if !ok {
		return
	}
	if err := s.engine.UpdateDeposit(from, new(big.Int).SetUint64(req.Amount)); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposit_amount": req.Amount})
}

func (s *Server) handleUpdateTimelock(w http.ResponseWriter, r *http.Request) {
	from, req, ok := s.decodeAdmin(w, r)
	if !ok {
		return
	}
	if err := s.engine.UpdateTimelock(from, time.Duration(req.Seconds)*time.Second); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timelock_seconds": req.Seconds})
}

func (s *Server) handleUpdateVotingPeriod(w http.ResponseWriter, r *http.Request) {
	from, req, ok := s.decodeAdmin(w, r)
	if !ok {
		return
	}
	if err := s.engine.UpdateVotingPeriod(from, time.Duration(req.Seconds)*time.Second); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voting_period_seconds": req.Seconds})
}

func parseID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid proposal id %q", raw)
	}
	return id, nil
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrProposalNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrStateViolation),
		errors.Is(err, core.ErrDuplicateVote):
		status = http.StatusConflict
	case errors.Is(err, core.ErrMismatchedBatch),
		errors.Is(err, core.ErrInvalidConfig),
		errors.Is(err, core.ErrNoVotingPower),
		errors.Is(err, core.ErrInsufficientFunds):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrExternalInvocation):
		status = http.StatusBadGateway
	}
	s.logger.Debugf("request failed: %s", err)
	writeJSONError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
