package models

// CreateJobRequest is a manually entered work order. Dates may be sent in
// display (d/m/yyyy) or storage (yyyy-mm-dd) form.
type CreateJobRequest struct {
	OrderNumber string    `json:"order_number" example:"12345"`
	Client      *string   `json:"client,omitempty" example:"Brindes Paulista LTDA"`
	Product     *string   `json:"product,omitempty" example:"Pin Gaveta"`
	Quantity    *int      `json:"quantity,omitempty" example:"1500"`
	DueDate     *string   `json:"due_date,omitempty" example:"20/03/2025"`
	IssueDate   *string   `json:"issue_date,omitempty" example:"01/03/2025"`
	OrderType   OrderType `json:"order_type,omitempty" example:"SALE"`
}

// UpdateJobRequest edits job fields. Keys left out are kept; keys sent as
// null clear the field.
type UpdateJobRequest struct {
	OrderNumber Optional[string]    `json:"order_number"`
	Client      Optional[string]    `json:"client"`
	Product     Optional[string]    `json:"product"`
	Quantity    Optional[int]       `json:"quantity"`
	DueDate     Optional[string]    `json:"due_date"`
	IssueDate   Optional[string]    `json:"issue_date"`
	OrderType   Optional[OrderType] `json:"order_type"`
}

type StageRequest struct {
	Stage string `json:"stage" binding:"required" example:"FUNDICAO"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
