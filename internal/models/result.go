package models

import "encoding/json"

// ResultKind tags the ProcessingResult variants.
type ResultKind string

const (
	ResultSummary ResultKind = "summary"
	ResultCustom  ResultKind = "custom"
	ResultQA      ResultKind = "qa_pairs"
	ResultVision  ResultKind = "vision_analysis"
)

// VisionOutput is the model's description of one image.
type VisionOutput struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

// ProcessingResult is implemented by SummaryResult, CustomResult, QAResult
// and VisionResult only.
type ProcessingResult interface {
	Kind() ResultKind
	// OutputFile is the file name under the results directory.
	OutputFile() string
	// StoredContent is the text persisted with the saved result.
	StoredContent() string
	VisionOutputs() []VisionOutput
	isProcessingResult()
}

type SummaryResult struct {
	Content  string
	Filename string
	Vision   []VisionOutput
}

type CustomResult struct {
	Content  string
	Filename string
	Vision   []VisionOutput
}

type QAResult struct {
	Pairs    []QAPair
	Filename string
	Vision   []VisionOutput
}

type VisionResult struct {
	Content  string
	Filename string
	Vision   []VisionOutput
}

func (SummaryResult) Kind() ResultKind { return ResultSummary }
func (CustomResult) Kind() ResultKind  { return ResultCustom }
func (QAResult) Kind() ResultKind      { return ResultQA }
func (VisionResult) Kind() ResultKind  { return ResultVision }

func (r SummaryResult) OutputFile() string { return r.Filename }
func (r CustomResult) OutputFile() string  { return r.Filename }
func (r QAResult) OutputFile() string      { return r.Filename }
func (r VisionResult) OutputFile() string  { return r.Filename }

func (r SummaryResult) StoredContent() string { return r.Content }
func (r CustomResult) StoredContent() string  { return r.Content }
func (r VisionResult) StoredContent() string  { return r.Content }

func (r QAResult) StoredContent() string {
	data, err := json.Marshal(QADocument{Pairs: r.Pairs})
	if err != nil {
		return ""
	}
	return string(data)
}

func (r SummaryResult) VisionOutputs() []VisionOutput { return r.Vision }
func (r CustomResult) VisionOutputs() []VisionOutput  { return r.Vision }
func (r QAResult) VisionOutputs() []VisionOutput      { return r.Vision }
func (r VisionResult) VisionOutputs() []VisionOutput  { return r.Vision }

func (SummaryResult) isProcessingResult() {}
func (CustomResult) isProcessingResult()  {}
func (QAResult) isProcessingResult()      {}
func (VisionResult) isProcessingResult()  {}

type resultEnvelope struct {
	Type          ResultKind     `json:"type"`
	Content       any            `json:"content"`
	Filename      string         `json:"filename"`
	DownloadURL   string         `json:"download_url,omitempty"`
	VisionResults []VisionOutput `json:"vision_results,omitempty"`
}

// DownloadURL is the route serving a generated result file.
func DownloadURL(filename string) string {
	if filename == "" {
		return ""
	}
	return "/download/" + filename
}

func marshalResult(kind ResultKind, content any, filename string, vision []VisionOutput) ([]byte, error) {
	return json.Marshal(resultEnvelope{
		Type:          kind,
		Content:       content,
		Filename:      filename,
		DownloadURL:   DownloadURL(filename),
		VisionResults: vision,
	})
}

func (r SummaryResult) MarshalJSON() ([]byte, error) {
	return marshalResult(r.Kind(), r.Content, r.Filename, r.Vision)
}

func (r CustomResult) MarshalJSON() ([]byte, error) {
	return marshalResult(r.Kind(), r.Content, r.Filename, r.Vision)
}

func (r QAResult) MarshalJSON() ([]byte, error) {
	pairs := r.Pairs
	if pairs == nil {
		pairs = []QAPair{}
	}
	return marshalResult(r.Kind(), QADocument{Pairs: pairs}, r.Filename, r.Vision)
}

func (r VisionResult) MarshalJSON() ([]byte, error) {
	return marshalResult(r.Kind(), r.Content, r.Filename, r.Vision)
}
