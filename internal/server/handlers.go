package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/classifier"
	"github.com/MurderWizard/pokemon-pricing/internal/database"
	"github.com/MurderWizard/pokemon-pricing/internal/deals"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/resolver"
	"github.com/MurderWizard/pokemon-pricing/internal/store"
	"github.com/MurderWizard/pokemon-pricing/internal/trend"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// Handlers holds the API handlers and their dependencies.
type Handlers struct {
	log        zerolog.Logger
	db         *database.DB
	records    *store.Repository
	resolver   *resolver.Resolver
	classifier *classifier.Classifier
	trend      *trend.Analyzer
	grading    *deals.GradingCalculator
	freshness  time.Duration
}

// NewHandlers creates the handler set.
func NewHandlers(
	log zerolog.Logger,
	db *database.DB,
	records *store.Repository,
	res *resolver.Resolver,
	cls *classifier.Classifier,
	trd *trend.Analyzer,
	grading *deals.GradingCalculator,
	freshness time.Duration,
) *Handlers {
	return &Handlers{
		log:        logger.Component(log, "handlers"),
		db:         db,
		records:    records,
		resolver:   res,
		classifier: cls,
		trend:      trd,
		grading:    grading,
		freshness:  freshness,
	}
}

// cardFromQuery builds the card key from name/set query parameters.
func (h *Handlers) cardFromQuery(r *http.Request) (domain.CardKey, error) {
	card := domain.NewCardKey(r.URL.Query().Get("name"), r.URL.Query().Get("set"))
	return card, card.Validate()
}

// conditionFromQuery parses the condition query parameters. Structured
// parameters (company/grade, raw) win; otherwise the free-text condition
// parameter runs through the classifier. Missing parameters yield Unknown.
func (h *Handlers) conditionFromQuery(r *http.Request) domain.ConditionSpec {
	q := r.URL.Query()

	if company := q.Get("company"); company != "" {
		if label := q.Get("label"); label != "" {
			return domain.GradedLabel(company, 0, label)
		}
		if grade, err := strconv.ParseFloat(q.Get("grade"), 64); err == nil {
			return domain.Graded(company, grade)
		}
	}
	if raw := q.Get("raw"); raw != "" {
		return domain.Raw(raw)
	}
	if text := q.Get("condition"); text != "" {
		return h.classifier.Classify(text)
	}
	return domain.Unknown()
}

// HandleHealth reports liveness plus a database ping.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.db.Conn().PingContext(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Health check database ping failed")
		status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// HandleGetPrice resolves the best price for a card and condition.
func (h *Handlers) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	est, err := h.resolver.Resolve(r.Context(), card, h.conditionFromQuery(r))
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			h.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"estimate": est,
		"record":   est.Record(h.freshness),
	})
}

// HandleGetObservations lists stored observations for a card, newest
// first.
func (h *Handlers) HandleGetObservations(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	obs, err := h.records.Get(card, h.conditionFromQuery(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"card":         card,
		"observations": obs,
		"count":        len(obs),
	})
}

// manualPriceRequest is the POST /api/prices body.
type manualPriceRequest struct {
	Name          string  `json:"name"`
	Set           string  `json:"set"`
	ConditionText string  `json:"condition_text,omitempty"`
	Company       string  `json:"company,omitempty"`
	Grade         float64 `json:"grade,omitempty"`
	Label         string  `json:"label,omitempty"`
	Raw           string  `json:"raw,omitempty"`
	Price         float64 `json:"price"`
	Confidence    float64 `json:"confidence,omitempty"`
}

func (req manualPriceRequest) condition(cls *classifier.Classifier) domain.ConditionSpec {
	switch {
	case req.Company != "" && req.Label != "":
		return domain.GradedLabel(req.Company, req.Grade, req.Label)
	case req.Company != "":
		return domain.Graded(req.Company, req.Grade)
	case req.Raw != "":
		return domain.Raw(req.Raw)
	case req.ConditionText != "":
		return cls.Classify(req.ConditionText)
	default:
		return domain.Unknown()
	}
}

// HandlePostPrice records a manually verified price.
func (h *Handlers) HandlePostPrice(w http.ResponseWriter, r *http.Request) {
	var req manualPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = 0.9
	}

	obs := domain.PriceObservation{
		Card:       domain.NewCardKey(req.Name, req.Set),
		Condition:  req.condition(h.classifier),
		Price:      req.Price,
		Confidence: confidence,
		Source:     domain.SourceManual,
		ObservedAt: time.Now().UTC(),
	}

	if err := h.records.Put(obs); err != nil {
		if errors.Is(err, domain.ErrInvalidObservation) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info().
		Str("card", obs.Card.String()).
		Str("condition", obs.Condition.String()).
		Float64("price", obs.Price).
		Msg("Manual price recorded")

	h.writeJSON(w, http.StatusCreated, map[string]any{"recorded": obs})
}

// classifyRequest is the POST /api/classify body.
type classifyRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	SellerRating float64 `json:"seller_rating,omitempty"`
}

// HandleClassify runs the condition classifier over listing text.
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	result := h.classifier.ClassifyListing(req.Title, req.Description, req.SellerRating)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"condition":  result.Condition,
		"display":    result.Condition.String(),
		"confidence": result.Confidence,
		"notes":      result.Notes,
	})
}

// HandleGetTrend reports price direction and volatility for a card.
func (h *Handlers) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	report, err := h.trend.Analyze(card, h.conditionFromQuery(r), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// HandleGradingProfit evaluates the expected value of grading a raw card.
func (h *Handlers) HandleGradingProfit(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	q := r.URL.Query()
	rawPrice, err := strconv.ParseFloat(q.Get("raw_price"), 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("raw_price is required"))
		return
	}

	confidence := 0.8
	if v, err := strconv.ParseFloat(q.Get("condition_confidence"), 64); err == nil {
		confidence = v
	}
	tier := deals.TierBasic
	if q.Get("tier") == string(deals.TierFast) {
		tier = deals.TierFast
	}

	analysis, err := h.grading.Evaluate(r.Context(), card, rawPrice, confidence, tier)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidObservation) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

// HandleFees compares payment-rail fees for an amount.
func (h *Handlers) HandleFees(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount <= 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("amount must be a positive number"))
		return
	}
	h.writeJSON(w, http.StatusOK, deals.ComparePaymentMethods(amount))
}

// HandleStats reports ledger statistics.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.records.Statistics()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// HandleExport streams every observation as a msgpack sequence.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/msgpack")
	w.Header().Set("Content-Disposition", `attachment; filename="observations.msgpack"`)

	count, err := h.records.Export(w)
	if err != nil {
		// Headers already sent, only log.
		h.log.Error().Err(err).Msg("Export failed mid-stream")
		return
	}
	h.log.Info().Int("count", count).Msg("Observations exported")
}

// HandleImport bulk-loads observations from a msgpack sequence. Invalid
// records are skipped and counted.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	imported, skipped, err := h.records.Import(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.log.Info().Int("imported", imported).Int("skipped", skipped).Msg("Observations imported")
	h.writeJSON(w, http.StatusOK, map[string]int{
		"imported": imported,
		"skipped":  skipped,
	})
}

// HandleDatabaseStats reports low-level SQLite statistics.
func (h *Handlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
