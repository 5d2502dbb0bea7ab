package mesh

// LandmarksRequest for POST /landmarks
type LandmarksRequest struct {
	Img             string `json:"img"` // base64 encoded image
	RefineLandmarks bool   `json:"refine_landmarks"`
	MaxFaces        int    `json:"max_faces"`
}

// LandmarksResponse from POST /landmarks
type LandmarksResponse struct {
	ImageWidth  int          `json:"image_width"`
	ImageHeight int          `json:"image_height"`
	Faces       []FaceResult `json:"faces"`
}

type FaceResult struct {
	Topology   string       `json:"topology"`   // "face_mesh_468" or "face_mesh_478"
	Normalized bool         `json:"normalized"` // coordinates in [0,1] of image size
	Confidence float64      `json:"confidence"`
	Box        FacialArea   `json:"box"`
	Landmarks  [][3]float64 `json:"landmarks"` // x, y, z; z is ignored
}

type FacialArea struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}
