package dto

type BaseResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewBaseResponse(code int, message string, data interface{}) *BaseResponse {
	return &BaseResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewBadRequestResponse(message string) *BaseResponse {
	return NewBaseResponse(400, message, nil)
}

func NewSuccessResponse(message string, data interface{}) *BaseResponse {
	return NewBaseResponse(200, message, data)
}

type AnalyzeRequest struct {
	Assets        []string `json:"assets" validate:"required,min=1,dive,required"`
	TimeframeDays int      `json:"timeframe_days" validate:"omitempty,min=1,max=365"`
	RiskTolerance string   `json:"risk_tolerance" validate:"omitempty,oneof=conservative moderate aggressive very_aggressive"`
}

type CreateScheduleRequest struct {
	Name          string   `json:"name" validate:"required"`
	Assets        []string `json:"assets" validate:"required,min=1,dive,required"`
	TimeframeDays int      `json:"timeframe_days" validate:"omitempty,min=1,max=365"`
	Frequency     string   `json:"frequency" validate:"required,oneof=daily weekly"`
	TimeOfDay     string   `json:"time_of_day" validate:"required"`
	RiskTolerance string   `json:"risk_tolerance" validate:"omitempty,oneof=conservative moderate aggressive very_aggressive"`
	SendEmail     bool     `json:"send_email"`
	Enabled       *bool    `json:"enabled"`
}

// UpdateScheduleRequest carries partial edits; nil members are left unchanged.
type UpdateScheduleRequest struct {
	Name          *string  `json:"name"`
	Assets        []string `json:"assets" validate:"omitempty,min=1,dive,required"`
	TimeframeDays *int     `json:"timeframe_days" validate:"omitempty,min=1,max=365"`
	Frequency     *string  `json:"frequency" validate:"omitempty,oneof=daily weekly"`
	TimeOfDay     *string  `json:"time_of_day"`
	RiskTolerance *string  `json:"risk_tolerance" validate:"omitempty,oneof=conservative moderate aggressive very_aggressive"`
	SendEmail     *bool    `json:"send_email"`
	Enabled       *bool    `json:"enabled"`
}
