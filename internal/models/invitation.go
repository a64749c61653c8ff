package models

import "time"

// Invitation is a single-use, time-bounded code granting membership of a company.
type Invitation struct {
	Code        string     `dynamodbav:"code" json:"code"`
	CompanyID   string     `dynamodbav:"companyId" json:"companyId"`
	CompanyName string     `dynamodbav:"companyName" json:"companyName"`
	ExpiryDate  time.Time  `dynamodbav:"expiryDate" json:"expiryDate"`
	CreatedAt   time.Time  `dynamodbav:"createdAt" json:"createdAt"`
	CreatedBy   string     `dynamodbav:"createdBy" json:"createdBy"`
	Used        bool       `dynamodbav:"used" json:"used"`
	UsedBy      string     `dynamodbav:"usedBy,omitempty" json:"usedBy,omitempty"`
	UsedAt      *time.Time `dynamodbav:"usedAt,omitempty" json:"usedAt,omitempty"`
	UserEmail   string     `dynamodbav:"userEmail,omitempty" json:"userEmail,omitempty"`
}

// IsExpired returns true if now is at or past the expiry instant.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiryDate)
}
