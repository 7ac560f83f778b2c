package botreply

// BotReply is one canned line in the bot catalog. Rows are consumed in
// ascending id order, one per bot slot.
type BotReply struct {
	ID      int    `gorm:"primaryKey" json:"id"`
	Content string `gorm:"not null" json:"content"`
}
