package collector

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/semtweets/cli/cmd/semtweets/cli/corpus"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/semtweets/cli/cmd/semtweets/cli/kmeans"
	"github.com/semtweets/cli/cmd/semtweets/cli/lsi"
	"github.com/semtweets/cli/cmd/semtweets/cli/metrics"
	"github.com/semtweets/cli/cmd/semtweets/cli/pipeline"
	"github.com/semtweets/cli/cmd/semtweets/cli/report"
	"github.com/semtweets/cli/cmd/semtweets/cli/vspace"
	"go.uber.org/zap"
)

type ingestResponse struct {
	Received   int      `json:"received"`
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	IDs        []string `json:"ids"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.config.Collector.MaxBodyBytes)
	records, err := corpus.DecodeStream(body)
	if err != nil {
		metrics.TweetsRejected.Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(records) == 0 {
		metrics.TweetsRejected.Inc()
		s.respondError(w, http.StatusBadRequest, "no tweets in request body")
		return
	}

	resp := ingestResponse{Received: len(records), IDs: []string{}}
	for _, rec := range records {
		id, err := s.ingester.Add(db.Tweet{Text: rec.Text, Author: rec.Author, CreatedAt: rec.CreatedAt})
		if err != nil {
			s.logger.Error("ingest failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.ObserveIngest(Source, id != "")
		if id == "" {
			resp.Duplicates++
			continue
		}
		resp.Inserted++
		resp.IDs = append(resp.IDs, id)
	}
	s.logger.Debug("tweets ingested",
		zap.Int("received", resp.Received),
		zap.Int("inserted", resp.Inserted),
		zap.Int("duplicates", resp.Duplicates),
	)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := db.CountTweets(s.db)
	if err != nil {
		s.logger.Error("count tweets failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"tweets": n})
}

// clusterRequest overrides configured pipeline parameters; zero values keep
// the configured ones.
type clusterRequest struct {
	LatentDims    int    `json:"latent_dims"`
	Clusters      int    `json:"clusters"`
	MaxIterations int    `json:"max_iterations"`
	Seed          *int64 `json:"seed"`
	Keywords      int    `json:"keywords"`
	Store         bool   `json:"store"`
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	pc := s.config.Pipeline
	params := pipeline.Params{
		LatentDims:    orDefault(req.LatentDims, pc.LatentDims),
		Clusters:      orDefault(req.Clusters, pc.Clusters),
		MaxIterations: orDefault(req.MaxIterations, pc.MaxIterations),
	}
	opts := []pipeline.Option{
		pipeline.WithLogger(s.logger),
		pipeline.WithWorkers(pc.Workers),
		pipeline.WithKeywords(orDefault(req.Keywords, pc.Keywords)),
		pipeline.WithTokenizer(vspace.NewTokenizer(vspace.WithMinLength(pc.MinLength))),
	}
	switch {
	case req.Seed != nil:
		opts = append(opts, pipeline.WithSeed(*req.Seed))
	case pc.Seed != nil:
		opts = append(opts, pipeline.WithSeed(*pc.Seed))
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	tweets, err := db.QueryTweets(s.db, db.TweetPageOptions{})
	if err != nil {
		s.logger.Error("load tweets failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	texts := make([]string, len(tweets))
	ids := make([]string, len(tweets))
	for i, t := range tweets {
		texts[i] = t.Text
		ids[i] = t.ID
	}

	start := time.Now()
	res, err := pipeline.New(opts...).Run(texts, params)
	iterations := 0
	if res != nil {
		iterations = res.Iterations
	}
	metrics.ObservePipeline(time.Since(start).Seconds(), iterations, err)
	if err != nil {
		if isParameterError(err) {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("pipeline failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Store {
		runID, err := db.SaveRun(s.db, res, params, ids, Source)
		if err != nil {
			s.logger.Error("store run failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("X-Run-ID", runID)
	}
	s.respondJSON(w, http.StatusOK, report.Build(res, report.Corpus{Texts: texts, IDs: ids}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// isParameterError reports whether err was caused by the request rather
// than by the server.
func isParameterError(err error) bool {
	var rank *lsi.InvalidRankError
	var count *kmeans.InvalidClusterCountError
	var iters *kmeans.InvalidIterationsError
	return errors.As(err, &rank) || errors.As(err, &count) || errors.As(err, &iters) ||
		errors.Is(err, vspace.ErrEmptyCorpus) || errors.Is(err, vspace.ErrEmptyVocabulary)
}

func orDefault(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
