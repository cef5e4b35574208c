package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SeverityCounts 按严重度统计的告警数量（lot.alert_summary_json）
type SeverityCounts map[string]int

func (s SeverityCounts) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *SeverityCounts) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan SeverityCounts: %v", value)
	}
	return json.Unmarshal(bytes, s)
}

// Total 告警总数
func (s SeverityCounts) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}
