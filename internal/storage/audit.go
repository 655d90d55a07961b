// Package storage 审计日志存储层
//
// 池状态本身只存在内存中，进程重启不恢复；本包持久化的是
// 操作审计记录（谁在何时对哪个节点做了什么、结果如何），
// 纯观测用途，不参与池的状态机。
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// AuditEntry 单条操作审计记录
type AuditEntry struct {
	ID        int64     `json:"id"`
	Node      string    `json:"node"`
	Op        string    `json:"op"`
	Subject   string    `json:"subject,omitempty"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditStore SQLite 审计存储
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore 打开（或创建）审计数据库
func NewAuditStore(path string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS audit_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			node       TEXT NOT NULL,
			op         TEXT NOT NULL,
			subject    TEXT NOT NULL DEFAULT '',
			result     TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_node ON audit_log(node);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &AuditStore{db: db}, nil
}

// Close 关闭数据库连接
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// RecordOperation 写入一条审计记录
func (s *AuditStore) RecordOperation(ctx context.Context, e *AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (node, op, subject, result, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.Node, e.Op, e.Subject, e.Result, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// List 按时间倒序列出最近的审计记录
func (s *AuditStore) List(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, op, subject, result, created_at
		FROM audit_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByNode 列出某节点的审计记录（时间倒序）
func (s *AuditStore) ListByNode(ctx context.Context, node string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, op, subject, result, created_at
		FROM audit_log WHERE node = ? ORDER BY id DESC LIMIT ?
	`, node, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for node %s: %w", node, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*AuditEntry, error) {
	var result []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		if err := rows.Scan(&e.ID, &e.Node, &e.Op, &e.Subject, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
