package models

// S3Event mirrors the storage notification shape delivered on upload
// completion.
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string        `json:"eventName"`
	S3        S3EventEntity `json:"s3"`
}

type S3EventEntity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key string `json:"key"`
}

// ThumbnailJob is the async payload sent to the thumbnail generator.
type ThumbnailJob struct {
	Bucket     string              `json:"bucket"`
	FilePath   string              `json:"filePath"`
	FileName   string              `json:"fileName"`
	TargetDir  string              `json:"targetDir"`
	OnComplete ThumbnailCompletion `json:"invokeOnCompletePayload"`
}

// ThumbnailCompletion is posted back when the derivative is ready; it names
// the recipe version the generator saw so the attach can detect a stale key.
type ThumbnailCompletion struct {
	ID               string `json:"id"`
	LastModifiedDate string `json:"lastModifiedDate"`
	FileName         string `json:"fileName"`
	Thumbnail        bool   `json:"thumbnail"`
}
