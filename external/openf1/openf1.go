package openf1

// Payload shapes of the OpenF1 REST API. Unknown fields are ignored on
// purpose; the provider adds attributes between seasons.

type meetingPayload struct {
	MeetingKey          int64  `json:"meeting_key"`
	MeetingName         string `json:"meeting_name"`
	MeetingOfficialName string `json:"meeting_official_name"`
	CircuitShortName    string `json:"circuit_short_name"`
	CountryName         string `json:"country_name"`
	Location            string `json:"location"`
	DateStart           string `json:"date_start"`
	GMTOffset           string `json:"gmt_offset"`
	Year                int    `json:"year"`
}

type sessionPayload struct {
	SessionKey  int64  `json:"session_key"`
	MeetingKey  int64  `json:"meeting_key"`
	SessionName string `json:"session_name"`
	SessionType string `json:"session_type"`
	DateStart   string `json:"date_start"`
	DateEnd     string `json:"date_end"`
	Year        int    `json:"year"`
}

type driverPayload struct {
	DriverNumber int64  `json:"driver_number"`
	FullName     string `json:"full_name"`
	NameAcronym  string `json:"name_acronym"`
	TeamName     string `json:"team_name"`
	CountryCode  string `json:"country_code"`
	HeadshotURL  string `json:"headshot_url"`
}
