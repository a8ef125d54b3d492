package ai

import "fmt"

// cocoClasses are the 80 class names of the fixed-vocabulary model, by class id.
var cocoClasses = [...]string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

// Class is an entry of the class catalogue offered to settings UIs.
type Class struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CommonTargets lists the classes most often worth redacting on a desk camera.
var CommonTargets = []Class{
	{ID: 0, Name: "Person"},
	{ID: 67, Name: "Cell Phone"},
	{ID: 63, Name: "Laptop"},
	{ID: 64, Name: "Mouse"},
	{ID: 66, Name: "Keyboard"},
	{ID: 39, Name: "Bottle"},
	{ID: 41, Name: "Cup"},
	{ID: 73, Name: "Book"},
	{ID: 24, Name: "Backpack"},
	{ID: 26, Name: "Handbag"},
	{ID: 77, Name: "Teddy Bear"},
}

// ClassName maps a fixed-vocabulary class id to its name.
func ClassName(classID int) string {
	if classID >= 0 && classID < len(cocoClasses) {
		return cocoClasses[classID]
	}
	return fmt.Sprintf("unknown%d", classID)
}

// ClassCount is the size of the fixed vocabulary.
func ClassCount() int {
	return len(cocoClasses)
}
