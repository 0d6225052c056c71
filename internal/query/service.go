package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

// Service provides read-only access to the projection tables. Responses
// carry as_of_sequence so callers can judge freshness against the engine
// sequence; projections lag when the projection channel drops under load.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GetBalance returns the projected balance of an address. Addresses with
// no row have never held a balance and report zero.
func (s *Service) GetBalance(ctx context.Context, addr asset.Address) (*BalanceResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var balance string
	err = s.db.QueryRowContext(ctx, `
		SELECT balance::text FROM projections.balances WHERE address = $1
	`, addr.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		balance = "0"
	} else if err != nil {
		return nil, fmt.Errorf("query balance: %w", err)
	}

	return &BalanceResponse{
		Address:      addr.String(),
		Balance:      balance,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetMovementHistory returns movements sent or received by an address,
// most recent first.
func (s *Service) GetMovementHistory(
	ctx context.Context,
	addr asset.Address,
	limit int,
) (*MovementHistoryResponse, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT movement_id, sequence, kind, from_address, to_address, amount::text
		FROM projections.movements
		WHERE from_address = $1 OR to_address = $1
		ORDER BY sequence DESC, movement_id
		LIMIT $2
	`, addr.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	resp := &MovementHistoryResponse{
		Address:      addr.String(),
		Movements:    []MovementHistoryEntry{},
		AsOfSequence: asOfSeq,
	}
	for rows.Next() {
		var e MovementHistoryEntry
		if err := rows.Scan(
			&e.MovementID, &e.Sequence, &e.Kind,
			&e.FromAddress, &e.ToAddress, &e.Amount,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		resp.Movements = append(resp.Movements, e)
	}

	return resp, rows.Err()
}

// GetAsset returns the projected record for one derived asset.
func (s *Service) GetAsset(ctx context.Context, assetID uint64) (*AssetResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var r AssetResponse
	r.AssetID = assetID
	r.AsOfSequence = asOfSeq
	err = s.db.QueryRowContext(ctx, `
		SELECT owner, approved, multihash
		FROM projections.assets WHERE asset_id = $1
	`, assetID).Scan(&r.Owner, &r.Approved, &r.Multihash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, asset.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query asset: %w", err)
	}
	return &r, nil
}

func (s *Service) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT sequence FROM projections.watermark WHERE id = 1
	`).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return seq, err
}
