package models

// StoreSetting 代表商店的可調整營運參數，整張表只有一列
// 欄位的合法範圍由 engine.Settings 負責檢查
type StoreSetting struct {
	ID             uint `gorm:"primaryKey"`
	DailyCapacity  int  `gorm:"type:integer;not null"`
	BuyerWeeklyMax int  `gorm:"type:integer;not null"`
}
