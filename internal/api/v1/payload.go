package v1

// DatedTimeValue is one aggregated value for an hour bucket.
// Date is "YYYY-MM-DD" and Time is "HH:00" in the agent's local time zone.
type DatedTimeValue[T any] struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Value T      `json:"value"`
}

// HeartRateData is one heart-rate statistic for an hour bucket. Every
// populated bucket carries three of them, in order: average, max, min.
type HeartRateData struct {
	BPM  string `json:"bpm"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// HealthPayload is the plaintext view of one upload.
type HealthPayload struct {
	StepData           []DatedTimeValue[int64]   `json:"stepData"`
	HeartRateData      []HeartRateData           `json:"heartRateData"`
	CaloriesBurnedData []DatedTimeValue[float64] `json:"caloriesBurnedData"`
	DistanceWalked     []DatedTimeValue[float64] `json:"distanceWalked"`
	TotalSleepMinutes  int64                     `json:"totalSleepMinutes"`
	DeepSleepMinutes   []DatedTimeValue[int64]   `json:"deepSleepMinutes"`
	RemSleepMinutes    []DatedTimeValue[int64]   `json:"remSleepMinutes"`
	LightSleepMinutes  []DatedTimeValue[int64]   `json:"lightSleepMinutes"`
}

// HealthPayloadEncrypted mirrors HealthPayload with every leaf value replaced
// by its ciphertext. Bucket keys and record counts stay in the clear.
type HealthPayloadEncrypted struct {
	StepData           []DatedTimeValue[string] `json:"stepData"`
	HeartRateData      []HeartRateData          `json:"heartRateData"`
	CaloriesBurnedData []DatedTimeValue[string] `json:"caloriesBurnedData"`
	DistanceWalked     []DatedTimeValue[string] `json:"distanceWalked"`
	TotalSleepMinutes  string                   `json:"totalSleepMinutes"`
	DeepSleepMinutes   []DatedTimeValue[string] `json:"deepSleepMinutes"`
	RemSleepMinutes    []DatedTimeValue[string] `json:"remSleepMinutes"`
	LightSleepMinutes  []DatedTimeValue[string] `json:"lightSleepMinutes"`
}

// LoginRequest is the body of POST /users/google.
type LoginRequest struct {
	Email      string `json:"email"`
	Credential string `json:"credential"`
}

// LoginResponse is the remote login envelope.
type LoginResponse struct {
	Status  int       `json:"status"`
	Message string    `json:"message"`
	Data    LoginData `json:"data"`
}

type LoginData struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

type LoginUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}
