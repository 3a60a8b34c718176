package server

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Text           string `json:"text" binding:"required" example:"a cat playing alone"`
	VectorToSearch string `json:"vector_to_search" binding:"required" example:"image"`
	K              *int   `json:"k,omitempty" example:"5"`
}

// QueryReply is one ranked result of POST /query.
type QueryReply struct {
	Captions []string `json:"captions"`
	ImgURL   string   `json:"img_url" example:"http://images.cocodataset.org/val2014/COCO_val2014_000000203564.jpg"`
}

// ErrorReply carries an error message to the client.
type ErrorReply struct {
	Message string `json:"message"`
}
