// Package store reads and writes videos, cuts and upvotes.
//
// Reads take any sorm.Querier; writes take the *sql.Tx they should be part
// of, so callers decide the transaction boundary.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/gost/godata"
	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
	"github.com/niconiahi/olga.media/internal/godatautil"
	"github.com/niconiahi/olga.media/internal/ingest"
	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/models"
)

var (
	ErrCutNotFound = errors.New("cut not found")
)

const (
	defaultCutLimit = 1000
	maxCutLimit     = 1000
)

// ExistingHashes reports which of hashes already belong to a stored video.
func ExistingHashes(ctx context.Context, q sorm.Querier, hashes []string) (map[string]bool, error) {
	m := make(map[string]bool)

	if len(hashes) == 0 {
		return m, nil
	}

	var parameters []interface{}
	var placeholders []string

	for i := range hashes {
		parameters = append(parameters, hashes[i])
		placeholders = append(placeholders, fmt.Sprintf("?%d", i+1))
	}

	var videos []models.Video
	if err := sorm.FindWhere(ctx, q, &videos, fmt.Sprintf("where hash in (%s)", strings.Join(placeholders, ", ")), parameters...); err != nil {
		return nil, fmt.Errorf("store.ExistingHashes: %w", err)
	}

	for _, v := range videos {
		m[v.Hash] = true
	}

	return m, nil
}

// Known lets ingest skip videos that are already stored.
type Known struct {
	DB sorm.Querier
}

func (k Known) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	return ExistingHashes(ctx, k.DB, hashes)
}

var _ ingest.Known = Known{}

// SaveBatches stores every batch's video and its cuts, in order. A batch
// whose video is already stored is skipped, so running the same day twice
// is harmless.
func SaveBatches(ctx context.Context, tx *sql.Tx, day, month int, batches []ingest.Batch) ([]models.Video, error) {
	l := ctxlogger.GetLogger(ctx)

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.SaveBatches: %w", err)
	}

	var saved []models.Video

	for _, batch := range batches {
		var existing models.Video
		if err := sorm.FindFirstWhere(ctx, tx, &existing, "where hash = ?", batch.Video.Hash); err == nil {
			l.WithField("video.hash", batch.Video.Hash).Info("video already stored, skipping")
			continue
		} else if err != sql.ErrNoRows {
			return nil, fmt.Errorf("store.SaveBatches: could not look up video %s: %w", batch.Video.Hash, err)
		}

		video := models.Video{
			CreatedAt: now,
			Hash:      batch.Video.Hash,
			Title:     batch.Video.Title,
			Show:      batch.Video.Show,
			Day:       day,
			Month:     month,
		}

		if err := sorm.CreateRecord(ctx, tx, &video); err != nil {
			return nil, fmt.Errorf("store.SaveBatches: could not create video %s: %w", video.Hash, err)
		}

		for i, c := range batch.Cuts {
			if err := sorm.CreateRecord(ctx, tx, &models.Cut{
				CreatedAt: now,
				VideoID:   video.ID,
				Position:  i,
				Start:     c.Start,
				Seconds:   c.Seconds,
				Label:     c.Label,
			}); err != nil {
				return nil, fmt.Errorf("store.SaveBatches: could not create cut %d of video %s: %w", i, video.Hash, err)
			}
		}

		l.WithFields(logrus.Fields{
			"video.id":   video.ID,
			"video.hash": video.Hash,
			"video.show": video.Show,
			"cuts.count": len(batch.Cuts),
		}).Info("stored video")

		saved = append(saved, video)
	}

	return saved, nil
}

type CutFilter struct {
	Show  show.Show
	Day   int
	Month int
	Query *godata.GoDataQuery
}

func newestFirst() []sb.AsOrderingTerm {
	return []sb.AsOrderingTerm{
		sb.OrderDesc(models.CutSearchTable.C("VideoMonth")),
		sb.OrderDesc(models.CutSearchTable.C("VideoDay")),
		sb.OrderDesc(models.CutSearchTable.C("VideoID")),
		sb.OrderAsc(models.CutSearchTable.C("CutPosition")),
	}
}

// ListCuts returns cuts with their video, newest day first unless the query
// asks for another order.
func ListCuts(ctx context.Context, q sorm.Querier, filter CutFilter) ([]models.CutSearch, error) {
	var conditions []sb.AsExpr

	if filter.Show != "" {
		conditions = append(conditions, sb.BinaryOperator("=", models.CutSearchTable.C("VideoShow"), sb.Bind(string(filter.Show))))
	}
	if filter.Day != 0 {
		conditions = append(conditions, sb.BinaryOperator("=", models.CutSearchTable.C("VideoDay"), sb.Bind(filter.Day)))
	}
	if filter.Month != 0 {
		conditions = append(conditions, sb.BinaryOperator("=", models.CutSearchTable.C("VideoMonth"), sb.Bind(filter.Month)))
	}

	queryCondition, err := godatautil.MakeCondition(filter.Query, models.CutSearchTable)
	if err != nil {
		return nil, fmt.Errorf("store.ListCuts: %w", err)
	}
	if queryCondition != nil {
		conditions = append(conditions, queryCondition)
	}

	order, err := godatautil.MakeOrders(filter.Query, models.CutSearchTable, newestFirst()...)
	if err != nil {
		return nil, fmt.Errorf("store.ListCuts: %w", err)
	}

	var condition sb.AsExpr
	switch len(conditions) {
	case 0:
	case 1:
		condition = conditions[0]
	default:
		condition = sb.BooleanOperator("and", conditions...)
	}

	var cuts []models.CutSearch
	if err := qsorm.FindWhere(
		ctx,
		q,
		&cuts,
		condition,
		order,
		godatautil.MakeOffsetLimit(filter.Query, defaultCutLimit, maxCutLimit),
	); err != nil {
		return nil, fmt.Errorf("store.ListCuts: %w", err)
	}

	return cuts, nil
}

// Ranking returns the n most upvoted cuts. Ties go to the newest day.
func Ranking(ctx context.Context, q sorm.Querier, n int) ([]models.CutSearch, error) {
	var cuts []models.CutSearch
	if err := qsorm.FindWhere(
		ctx,
		q,
		&cuts,
		nil,
		append([]sb.AsOrderingTerm{sb.OrderDesc(models.CutSearchTable.C("UpvoteCount"))}, newestFirst()...),
		sb.OffsetLimit(nil, sb.Bind(n)),
	); err != nil {
		return nil, fmt.Errorf("store.Ranking: %w", err)
	}

	return cuts, nil
}

// AddUpvote records voterID upvoting cutID. Upvoting the same cut twice
// returns the first upvote.
func AddUpvote(ctx context.Context, tx *sql.Tx, cutID int, voterID string) (*models.Upvote, error) {
	var cut models.Cut
	if err := sorm.FindFirstWhere(ctx, tx, &cut, "where id = ?", cutID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store.AddUpvote: %d: %w", cutID, ErrCutNotFound)
		}

		return nil, fmt.Errorf("store.AddUpvote: %w", err)
	}

	var upvote models.Upvote
	if err := sorm.FindFirstWhere(ctx, tx, &upvote, "where cut_id = ? and voter_id = ?", cutID, voterID); err == nil {
		return &upvote, nil
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("store.AddUpvote: %w", err)
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.AddUpvote: %w", err)
	}

	upvote = models.Upvote{CreatedAt: now, CutID: cutID, VoterID: voterID}
	if err := sorm.CreateRecord(ctx, tx, &upvote); err != nil {
		return nil, fmt.Errorf("store.AddUpvote: %w", err)
	}

	return &upvote, nil
}

// RemoveUpvote deletes voterID's upvote of cutID, reporting whether there
// was one.
func RemoveUpvote(ctx context.Context, tx *sql.Tx, cutID int, voterID string) (bool, error) {
	res, err := tx.ExecContext(ctx, "delete from upvotes where cut_id = ? and voter_id = ?", cutID, voterID)
	if err != nil {
		return false, fmt.Errorf("store.RemoveUpvote: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store.RemoveUpvote: %w", err)
	}

	return n > 0, nil
}

func VoterUpvotes(ctx context.Context, q sorm.Querier, voterID string) ([]models.Upvote, error) {
	var upvotes []models.Upvote
	if err := sorm.FindWhere(ctx, q, &upvotes, "where voter_id = ? order by id asc", voterID); err != nil {
		return nil, fmt.Errorf("store.VoterUpvotes: %w", err)
	}

	return upvotes, nil
}

// UpvotedCutIDs is VoterUpvotes as a set of cut ids.
func UpvotedCutIDs(ctx context.Context, q sorm.Querier, voterID string) (map[int]bool, error) {
	m := make(map[int]bool)

	if voterID == "" {
		return m, nil
	}

	upvotes, err := VoterUpvotes(ctx, q, voterID)
	if err != nil {
		return nil, fmt.Errorf("store.UpvotedCutIDs: %w", err)
	}

	for _, u := range upvotes {
		m[u.CutID] = true
	}

	return m, nil
}
