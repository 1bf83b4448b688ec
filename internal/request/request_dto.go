package request

type CreateRequestInput struct {
	Type     string `json:"type" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Duration Days   `json:"duration"`
}

type ReviewRequestInput struct {
	Action string `json:"action" binding:"required,oneof=ACCEPT REJECT accept reject"`
}

type ListFilter struct {
	Type   Type
	Status Status
}

type RequestResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	EmployeeName    string `json:"employee_name,omitempty"`
	Type            Type   `json:"type"`
	Date            string `json:"date"`
	Duration        int    `json:"duration"`
	EndDate         string `json:"end_date"`
	Status          Status `json:"status"`
	StatusLabel     string `json:"status_label"`
	Reviewable      bool   `json:"reviewable"`
	RHApprovedBy    string `json:"rh_approved_by,omitempty"`
	AdminApprovedBy string `json:"admin_approved_by,omitempty"`
	RejectedBy      string `json:"rejected_by,omitempty"`
	DecidedAt       string `json:"decided_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}
