package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/iskay-network/usdc-flow-tracker/internal/audit"
	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("store")

// flowRow is the gorm model backing the Flow table. The nested
// ChainProgress/Metadata/ErrorState structures are stored as JSON text
// columns rather than normalized tables — they are read-modify-write as a
// unit under a single row lock (spec.md §5), so normalizing them would buy
// nothing but join complexity.
type flowRow struct {
	ID               string `gorm:"primary_key;type:varchar(64)"`
	TxHash           string `gorm:"type:varchar(128);unique_index"`
	FlowType         string `gorm:"type:varchar(16)"`
	InitialChain     string `gorm:"type:varchar(64)"`
	DestinationChain string `gorm:"type:varchar(64)"`
	Status           string `gorm:"type:varchar(16);index"`
	ChainProgress    string `gorm:"type:text"`
	Metadata         string `gorm:"type:text"`
	ErrorState       string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (flowRow) TableName() string { return "flows" }

type statusLogRow struct {
	ID        uint64 `gorm:"primary_key;auto_increment"`
	FlowID    string `gorm:"type:varchar(64);index"`
	Stage     string `gorm:"type:varchar(64)"`
	Chain     string `gorm:"type:varchar(16)"`
	Source    string `gorm:"type:varchar(16)"`
	Detail    string `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (statusLogRow) TableName() string { return "status_logs" }

// chainTxHashRow indexes the chain-specific tx hashes a flow accumulates
// (the initiating hash and each chain entry's hash; stage hashes are not
// indexed), so GetFlowByChainTxHash doesn't need a JSON query against the
// ChainProgress column.
type chainTxHashRow struct {
	ID     uint64 `gorm:"primary_key;auto_increment"`
	FlowID string `gorm:"type:varchar(64);index"`
	Chain  string `gorm:"type:varchar(16);index"`
	TxHash string `gorm:"type:varchar(128);index"`
}

func (chainTxHashRow) TableName() string { return "chain_tx_hashes" }

// GormRepository is the production Repository.
type GormRepository struct {
	db     *gorm.DB
	mirror *audit.Mirror // optional; nil unless KAFKA_BROKERS is configured
}

// Open connects to dsn (DATABASE_URL) via the mysql driver and migrates
// the schema. mirror may be nil.
func Open(dsn string, mirror *audit.Mirror) (*GormRepository, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.AutoMigrate(&flowRow{}, &statusLogRow{}, &chainTxHashRow{}).Error; err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	return &GormRepository{db: db, mirror: mirror}, nil
}

func (r *GormRepository) Close() error {
	return r.db.Close()
}

func toRow(flow *model.Flow) (*flowRow, error) {
	cp, err := json.Marshal(flow.ChainProgress)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(flow.Metadata)
	if err != nil {
		return nil, err
	}
	var errState []byte
	if flow.ErrorState != nil {
		errState, err = json.Marshal(flow.ErrorState)
		if err != nil {
			return nil, err
		}
	}
	return &flowRow{
		ID:               flow.ID,
		TxHash:           flow.TxHash,
		FlowType:         string(flow.FlowType),
		InitialChain:     flow.InitialChain,
		DestinationChain: flow.DestinationChain,
		Status:           string(flow.Status),
		ChainProgress:    string(cp),
		Metadata:         string(meta),
		ErrorState:       string(errState),
		CreatedAt:        flow.CreatedAt,
		UpdatedAt:        flow.UpdatedAt,
	}, nil
}

func fromRow(row *flowRow) (*model.Flow, error) {
	flow := &model.Flow{
		ID:               row.ID,
		TxHash:           row.TxHash,
		FlowType:         model.FlowType(row.FlowType),
		InitialChain:     row.InitialChain,
		DestinationChain: row.DestinationChain,
		Status:           model.FlowStatus(row.Status),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.ChainProgress != "" {
		if err := json.Unmarshal([]byte(row.ChainProgress), &flow.ChainProgress); err != nil {
			return nil, err
		}
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &flow.Metadata); err != nil {
			return nil, err
		}
	}
	if row.ErrorState != "" {
		var es model.ErrorState
		if err := json.Unmarshal([]byte(row.ErrorState), &es); err != nil {
			return nil, err
		}
		flow.ErrorState = &es
	}
	return flow, nil
}

// CreateFlow implements Repository.
func (r *GormRepository) CreateFlow(ctx context.Context, flow *model.Flow) (bool, error) {
	now := time.Now()
	touch(flow, now)

	row, err := toRow(flow)
	if err != nil {
		return false, err
	}

	err = r.db.Create(row).Error
	if err == nil {
		r.indexChainTxHash(flow.ID, flow.InitiatingChainKey(), flow.TxHash)
		return false, nil
	}

	if !isDuplicateErr(err) || flow.TxHash == "" {
		return false, errors.Wrap(err, "create flow")
	}

	// Idempotent on txHash: a duplicate insert means this flow already
	// exists; load and return it in place (spec.md §3 invariant 6).
	var existing flowRow
	if ferr := r.db.Where("tx_hash = ?", flow.TxHash).First(&existing).Error; ferr != nil {
		return false, errors.Wrap(ferr, "load existing flow after duplicate insert")
	}
	loaded, ferr := fromRow(&existing)
	if ferr != nil {
		return false, ferr
	}
	*flow = *loaded
	return true, nil
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

// GetFlow implements Repository.
func (r *GormRepository) GetFlow(ctx context.Context, id string) (*model.Flow, error) {
	var row flowRow
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get flow")
	}
	return fromRow(&row)
}

// GetFlowByChainTxHash implements Repository.
func (r *GormRepository) GetFlowByChainTxHash(ctx context.Context, chain model.ChainKey, hash string) (*model.Flow, error) {
	var idx chainTxHashRow
	err := r.db.Where("chain = ? AND tx_hash = ?", string(chain), hash).First(&idx).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup chain tx hash index")
	}
	return r.GetFlow(ctx, idx.FlowID)
}

// UpdateFlow implements Repository.
func (r *GormRepository) UpdateFlow(ctx context.Context, flowID string, mutate func(*model.Flow) error) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin transaction")
	}
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
	}()

	var row flowRow
	if err := tx.Set("gorm:query_option", "FOR UPDATE").Where("id = ?", flowID).First(&row).Error; err != nil {
		tx.Rollback()
		if gorm.IsRecordNotFoundError(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "load flow for update")
	}

	flow, err := fromRow(&row)
	if err != nil {
		tx.Rollback()
		return err
	}

	beforeTx := flow.ChainProgress.AllTxHashes()

	if err := mutate(flow); err != nil {
		tx.Rollback()
		if err == ErrNoop {
			return nil
		}
		return err
	}

	touch(flow, time.Now())
	newRow, err := toRow(flow)
	if err != nil {
		tx.Rollback()
		return err
	}
	newRow.CreatedAt = row.CreatedAt

	if err := tx.Save(newRow).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "save updated flow")
	}
	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "commit update")
	}

	for chain, hash := range flow.ChainProgress.AllTxHashes() {
		if hash != "" && hash != beforeTx[chain] {
			r.indexChainTxHash(flow.ID, chain, hash)
		}
	}
	return nil
}

func (r *GormRepository) indexChainTxHash(flowID string, chain model.ChainKey, hash string) {
	if hash == "" {
		return
	}
	row := chainTxHashRow{FlowID: flowID, Chain: string(chain), TxHash: hash}
	if err := r.db.Create(&row).Error; err != nil {
		logger.Warn("failed to index chain tx hash", "flowId", flowID, "chain", chain, "err", err)
	}
}

// AppendStatusLog implements Repository.
func (r *GormRepository) AppendStatusLog(ctx context.Context, entry *model.StatusLog) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return err
	}
	row := statusLogRow{
		FlowID:    entry.FlowID,
		Stage:     entry.Stage,
		Chain:     string(entry.Chain),
		Source:    string(entry.Source),
		Detail:    string(detail),
		CreatedAt: entry.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := r.db.Create(&row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	r.mirror.Publish(entry)
	return nil
}

// ListStatusLogs implements Repository.
func (r *GormRepository) ListStatusLogs(ctx context.Context, flowID string) ([]model.StatusLog, error) {
	var rows []statusLogRow
	if err := r.db.Where("flow_id = ?", flowID).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.StatusLog, 0, len(rows))
	for _, row := range rows {
		var detail map[string]interface{}
		if row.Detail != "" {
			_ = json.Unmarshal([]byte(row.Detail), &detail)
		}
		out = append(out, model.StatusLog{
			ID: row.ID, FlowID: row.FlowID, Stage: row.Stage,
			Chain: model.ChainKey(row.Chain), Source: model.StageSource(row.Source),
			Detail: detail, CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// ListNonTerminalFlows implements Repository.
func (r *GormRepository) ListNonTerminalFlows(ctx context.Context) ([]*model.Flow, error) {
	var rows []flowRow
	if err := r.db.Where("status = ?", string(model.StatusPending)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Flow, 0, len(rows))
	for i := range rows {
		flow, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, flow)
	}
	return out, nil
}

// CountFlowsByStatus implements Repository.
func (r *GormRepository) CountFlowsByStatus(ctx context.Context) (map[model.FlowStatus]int, error) {
	rows, err := r.db.Raw("SELECT status, COUNT(*) as cnt FROM flows GROUP BY status").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.FlowStatus]int{
		model.StatusPending: 0, model.StatusCompleted: 0,
		model.StatusFailed: 0, model.StatusUndetermined: 0,
	}
	for rows.Next() {
		var status string
		var cnt int
		if err := rows.Scan(&status, &cnt); err != nil {
			return nil, err
		}
		out[model.FlowStatus(status)] = cnt
	}
	return out, nil
}
