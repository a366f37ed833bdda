// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// ListFilter 列表查询过滤器
type ListFilter struct {
	Search    string `json:"search,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
	OrderBy   string `json:"order_by,omitempty"`
	OrderDir  string `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    100,
		OrderBy:  "id",
		OrderDir: "asc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithDateRange 设置日期范围
func (f ListFilter) WithDateRange(start, end string) ListFilter {
	f.StartDate = start
	f.EndDate = end
	return f
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor 支持事务的数据库
type Transactor interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// safeOrderBy 白名单校验排序字段
func safeOrderBy(filter ListFilter, allowed ...string) string {
	col := filter.OrderBy
	ok := false
	for _, a := range allowed {
		if col == a {
			ok = true
			break
		}
	}
	if !ok {
		col = allowed[0]
	}
	dir := "ASC"
	if strings.EqualFold(filter.OrderDir, "desc") {
		dir = "DESC"
	}
	return col + " " + dir
}

// toJSON 序列化 JSONB 字段，nil 切片写为 []
func toJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化JSON失败: %w", err)
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

// fromJSON 反序列化 JSONB 字段，空值忽略
func fromJSON(data []byte, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析JSON失败: %w", err)
	}
	return nil
}
