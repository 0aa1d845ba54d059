package archive

// NewWithWriter builds a publisher around w.
func NewWithWriter(w messageWriter) *KafkaPublisher { return &KafkaPublisher{writer: w} }
