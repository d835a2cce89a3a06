package api

// Voice 参考音频条目，name 作为更新/删除的主键
type Voice struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Note       string `json:"note"`
	Category   string `json:"category"`
	FileExists bool   `json:"file_exists"`
}

// Category 音频分类
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerationRecord 服务端在成功生成后返回的历史记录
type GenerationRecord struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Text           string  `json:"text"`
	FullText       string  `json:"full_text"`
	InferMode      string  `json:"infer_mode"`
	GenerationTime float64 `json:"generation_time"`
	OutputFile     string  `json:"output_file"`
}

// FontInfo 服务端可用字体
type FontInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ProjectText 剪映工程中的文本元素，id 由服务端分配
type ProjectText struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	CurrentFont string  `json:"current_font"`
	FontSize    float64 `json:"font_size"`
}

// AudioSlot 剪映工程中的配音槽位
type AudioSlot struct {
	ID          string `json:"id"`
	TextID      string `json:"text_id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	TextContent string `json:"text_content"`
	Status      bool   `json:"status"`
	FileExists  bool   `json:"file_exists"`
}

// Segment 切分后的文案段落，duration 单位为微秒，未计算时为 null
type Segment struct {
	Text     string  `json:"text"`
	Duration *int64  `json:"duration"`
	FontSize float64 `json:"font_size,omitempty"`
}

// FontReplacement 单条字体替换项
type FontReplacement struct {
	TextID   string `json:"text_id"`
	FontPath string `json:"font_path"`
}

// AudioItem 批量替换音频时提交的单条数据
type AudioItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ReplaceResult 批量替换音频的逐条结果
type ReplaceResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UploadDetail 批量上传的逐文件结果
type UploadDetail struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// GenerateParams 语音生成参数，与 /generate 表单字段一一对应
type GenerateParams struct {
	Model                     string
	Voice                     string
	Text                      string
	InferMode                 string
	DoSample                  bool
	TopP                      float64
	TopK                      int
	Temperature               float64
	LengthPenalty             float64
	NumBeams                  int
	RepetitionPenalty         float64
	MaxMelTokens              int
	MaxTextTokensPerSentence  int
	SentencesBucketMaxSize    int
}

// GenerateResult /generate 的成功响应
type GenerateResult struct {
	OutputFile     string            `json:"output_file"`
	GenerationTime float64           `json:"generation_time"`
	Message        string            `json:"message"`
	Record         *GenerationRecord `json:"record"`
}

// ReplaceAudioResult /replace_jianying_audio 的成功响应
type ReplaceAudioResult struct {
	Message        string          `json:"message"`
	GenerationTime float64         `json:"generation_time"`
	Results        []ReplaceResult `json:"results"`
}

// UploadResult /batch_upload_audio 的成功响应
type UploadResult struct {
	Message string         `json:"message"`
	Details []UploadDetail `json:"details"`
	Voices  []Voice        `json:"voices"`
}
