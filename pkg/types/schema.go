// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SchemaVersion identifies the field set of Schema. The JSON keys below are
// a compatibility surface: renaming, adding, or removing a field requires
// bumping this value.
const SchemaVersion = "eeg-methods/1"

// Schema is the fixed extraction skeleton. Every field defaults to the empty
// string, which is also how absent information is represented in a Record.
type Schema struct {
	Study         Study         `json:"study" yaml:"study"`
	Preprocessing Preprocessing `json:"preprocessing" yaml:"preprocessing"`
	Processing    Processing    `json:"processing" yaml:"processing"`
}

// Study describes the cohort and the acquisition setup.
type Study struct {
	Cohort           string `json:"cohort" yaml:"cohort"`
	EEGChannels      string `json:"EEG channels" yaml:"EEG channels"`
	DualLayerEEG     string `json:"dual-layer EEG" yaml:"dual-layer EEG"`
	EEGSystem        string `json:"EEG system" yaml:"EEG system"`
	SamplingFreq     string `json:"sampling frequency" yaml:"sampling frequency"`
	Task             string `json:"task" yaml:"task"`
	SecondaryTask    string `json:"secondary task" yaml:"secondary task"`
	AnalysisSoftware string `json:"EEG analysis software" yaml:"EEG analysis software"`
}

// Preprocessing describes the cleaning steps applied before analysis.
type Preprocessing struct {
	ChannelRejection string `json:"channel rejection" yaml:"channel rejection"`
	SegmentRejection string `json:"segment rejection" yaml:"segment rejection"`
	Downsampling     string `json:"downsampling" yaml:"downsampling"`
	BandPassFilter   string `json:"band-pass filter" yaml:"band-pass filter"`
	HighPassFilter   string `json:"high-pass filter" yaml:"high-pass filter"`
	LowPassFilter    string `json:"low-pass filter" yaml:"low-pass filter"`
	BandStopFilter   string `json:"band-stop filter" yaml:"band-stop filter"`
	ReReferencing    string `json:"re-referencing" yaml:"re-referencing"`
	LineNoiseRemoval string `json:"line noise removal" yaml:"line noise removal"`
	Interpolation    string `json:"interpolation" yaml:"interpolation"`
	Epoching         string `json:"epoching" yaml:"epoching"`
	ASR              string `json:"ASR" yaml:"ASR"`
	ICA              string `json:"ICA" yaml:"ICA"`
	Dipfit           string `json:"dipfit" yaml:"dipfit"`
	ICLabel          string `json:"ICLabel" yaml:"ICLabel"`
	RejectICSegments string `json:"reject ICs segments" yaml:"reject ICs segments"`
	SelectICAWeights string `json:"select ICA weights" yaml:"select ICA weights"`
	ICClustering     string `json:"IC clustering" yaml:"IC clustering"`
}

// Processing describes the analyses run on the cleaned signal.
type Processing struct {
	ERSP                  string `json:"ERSP" yaml:"ERSP"`
	PSD                   string `json:"PSD" yaml:"PSD"`
	CorticomuscularCoh    string `json:"corticomuscular coherence" yaml:"corticomuscular coherence"`
	CorticalConnectivity  string `json:"cortical connectivity" yaml:"cortical connectivity"`
	FastFourierTransform  string `json:"fast fourier transform" yaml:"fast fourier transform"`
	TimeFrequencyAnalysis string `json:"time frequency analysis" yaml:"time frequency analysis"`
	FrequencyBands        string `json:"frequency bands" yaml:"frequency bands"`
	ICClustering          string `json:"IC clustering" yaml:"IC clustering"`
}

// Category names as they appear in the serialized schema.
const (
	CategoryStudy         = "study"
	CategoryPreprocessing = "preprocessing"
	CategoryProcessing    = "processing"
)

// Field addresses one string field of a Schema value.
type Field struct {
	Category string
	Name     string
	Value    *string
}

// Fields returns every field of s in serialization order. The Value pointers
// alias s, so writing through them updates s.
func (s *Schema) Fields() []Field {
	st, pre, pro := &s.Study, &s.Preprocessing, &s.Processing
	return []Field{
		{CategoryStudy, "cohort", &st.Cohort},
		{CategoryStudy, "EEG channels", &st.EEGChannels},
		{CategoryStudy, "dual-layer EEG", &st.DualLayerEEG},
		{CategoryStudy, "EEG system", &st.EEGSystem},
		{CategoryStudy, "sampling frequency", &st.SamplingFreq},
		{CategoryStudy, "task", &st.Task},
		{CategoryStudy, "secondary task", &st.SecondaryTask},
		{CategoryStudy, "EEG analysis software", &st.AnalysisSoftware},

		{CategoryPreprocessing, "channel rejection", &pre.ChannelRejection},
		{CategoryPreprocessing, "segment rejection", &pre.SegmentRejection},
		{CategoryPreprocessing, "downsampling", &pre.Downsampling},
		{CategoryPreprocessing, "band-pass filter", &pre.BandPassFilter},
		{CategoryPreprocessing, "high-pass filter", &pre.HighPassFilter},
		{CategoryPreprocessing, "low-pass filter", &pre.LowPassFilter},
		{CategoryPreprocessing, "band-stop filter", &pre.BandStopFilter},
		{CategoryPreprocessing, "re-referencing", &pre.ReReferencing},
		{CategoryPreprocessing, "line noise removal", &pre.LineNoiseRemoval},
		{CategoryPreprocessing, "interpolation", &pre.Interpolation},
		{CategoryPreprocessing, "epoching", &pre.Epoching},
		{CategoryPreprocessing, "ASR", &pre.ASR},
		{CategoryPreprocessing, "ICA", &pre.ICA},
		{CategoryPreprocessing, "dipfit", &pre.Dipfit},
		{CategoryPreprocessing, "ICLabel", &pre.ICLabel},
		{CategoryPreprocessing, "reject ICs segments", &pre.RejectICSegments},
		{CategoryPreprocessing, "select ICA weights", &pre.SelectICAWeights},
		{CategoryPreprocessing, "IC clustering", &pre.ICClustering},

		{CategoryProcessing, "ERSP", &pro.ERSP},
		{CategoryProcessing, "PSD", &pro.PSD},
		{CategoryProcessing, "corticomuscular coherence", &pro.CorticomuscularCoh},
		{CategoryProcessing, "cortical connectivity", &pro.CorticalConnectivity},
		{CategoryProcessing, "fast fourier transform", &pro.FastFourierTransform},
		{CategoryProcessing, "time frequency analysis", &pro.TimeFrequencyAnalysis},
		{CategoryProcessing, "frequency bands", &pro.FrequencyBands},
		{CategoryProcessing, "IC clustering", &pro.ICClustering},
	}
}

// Filled returns the number of fields holding a non-empty value.
func (s *Schema) Filled() int {
	n := 0
	for _, f := range s.Fields() {
		if *f.Value != "" {
			n++
		}
	}
	return n
}
