package correction

import "time"

// Correction maps a word or phrase the recognizer keeps getting wrong to
// what the user actually says.
type Correction struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"not null;index:idx_user_incorrect,unique" json:"-"`
	IncorrectKey string    `gorm:"not null;index:idx_user_incorrect,unique" json:"-"`
	Incorrect    string    `gorm:"not null" json:"incorrect"`
	Correct      string    `gorm:"not null" json:"correct"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateRequest struct {
	Incorrect string `json:"incorrect" validate:"required,max=128"`
	Correct   string `json:"correct" validate:"required,max=128,nefield=Incorrect"`
}

type ListResponse struct {
	Corrections []Correction `json:"corrections"`
}
