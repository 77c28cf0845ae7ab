package models

import "time"

// Department is an entry of the municipal department registry.
type Department struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Officer is a department employee who can be assigned complaints.
type Officer struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// EmployeeID is the municipal employee code.
	EmployeeID   string        `gorm:"size:64;not null;uniqueIndex" json:"employee_id"`
	Name         string        `gorm:"not null" json:"name"`
	Designation  string        `json:"designation"`
	DepartmentID uint          `gorm:"not null;index" json:"department_id"`
	Ward         string        `json:"ward,omitempty"`
	Status       OfficerStatus `gorm:"size:16;not null;index" json:"status"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	// TelegramChatID receives assignment notifications when non-zero.
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (o *Officer) IsActive() bool {
	return o.Status == OfficerActive
}
