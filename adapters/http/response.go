package vocabhttp

import "github.com/goliatone/go-vocabsheets/vocab"

type stateResponse struct {
	RawText     string        `json:"raw_text"`
	Items       []vocab.Item  `json:"items"`
	Sheets      []vocab.Sheet `json:"sheets"`
	CanExport   bool          `json:"can_export"`
	Downloading bool          `json:"downloading"`
	Version     uint64        `json:"version"`
}

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Words int           `json:"words"`
	State stateResponse `json:"state"`
}

type imagesResponse struct {
	Accepted int           `json:"accepted"`
	Added    int           `json:"added"`
	Errors   []string      `json:"errors"`
	State    stateResponse `json:"state"`
}

type removeResponse struct {
	Removed bool          `json:"removed"`
	State   stateResponse `json:"state"`
}

type historyResponse struct {
	Exports []vocab.ExportRecord `json:"exports"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
