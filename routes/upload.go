package routes

import (
	"fmt"
	"time"

	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

type uploadInput struct {
	Data     string `json:"data"`      // base64 data URL or raw base64
	PublicID string `json:"public_id"` // optional
}

// UploadImage handles base64 image upload to the media bucket.
func UploadImage(ctx iris.Context) {
	var in uploadInput
	if err := ctx.ReadJSON(&in); err != nil {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": "invalid payload"})
		return
	}

	objectName := in.PublicID
	if objectName == "" {
		objectName = fmt.Sprintf("uploads/%d/%d", utils.ContextUserID(ctx), time.Now().UnixNano())
	}

	url, err := storage.UploadBase64Image(in.Data, objectName)
	if err != nil {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": "upload failed"})
		return
	}
	ctx.JSON(iris.Map{"url": url})
}
