package models

// All 回傳所有需要建表的模型，供 migration 與測試共用
func All() []any {
	return []any{
		&Artwork{},
		&ArtworkSize{},
		&Order{},
		&Bid{},
		&ProductionSlot{},
		&BuyerLimit{},
		&AnalyticsEvent{},
		&Image{},
		&AdminAudit{},
		&StoreSetting{},
	}
}
