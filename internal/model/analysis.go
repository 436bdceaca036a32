package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisRecord is one persisted AssetResult, stored for history and review.
type AnalysisRecord struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Asset         string         `gorm:"type:varchar(100);not null;index" json:"asset"`
	AssetType     string         `gorm:"type:varchar(20);not null" json:"asset_type"`
	Symbol        string         `gorm:"type:varchar(20);not null" json:"symbol"`
	CurrentPrice  float64        `json:"current_price"`
	Decision      string         `gorm:"type:varchar(10);not null" json:"decision"`
	Confidence    float64        `json:"confidence"`
	RiskLevel     string         `gorm:"type:varchar(10)" json:"risk_level"`
	TimeframeDays int            `json:"timeframe_days"`
	Technical     datatypes.JSON `gorm:"type:jsonb" json:"technical"`
	Sentiment     datatypes.JSON `gorm:"type:jsonb" json:"sentiment"`
	Result        datatypes.JSON `gorm:"type:jsonb" json:"result"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}
