package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
	"uamvh.cloud/escolar/infrastructure/communication"
	"uamvh.cloud/escolar/infrastructure/filesystem"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/lambdas/statistics/helper"
)

var (
	files  = filesystem.NewFiles(filesystem.S3Option{Region: os.Getenv("AWS_REGION")})
	logger = newLogger()
)

func newLogger() *zap.Logger {
	l, err := logging.New("info", "json")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func slack() *communication.Slack {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil
	}
	return communication.NewSlack(token, communication.SlackOption{
		InfoChannelID:  os.Getenv("SLACK_INFO_CHANNEL"),
		ErrorChannelID: os.Getenv("SLACK_ERROR_CHANNEL"),
	})
}

// HandleRequest recomputes the statistics of every folder that received a
// concentrado.
func HandleRequest(ctx context.Context, event events.S3Event) error {
	folders := map[string]filesystem.Location{}
	for _, record := range event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		if !strings.HasSuffix(strings.ToLower(key), ".xlsx") {
			continue
		}
		folder := helper.Folder(filesystem.Location{Bucket: record.S3.Bucket.Name, Key: key})
		folders[folder.String()] = folder
	}

	var failed []string
	for name, folder := range folders {
		summary, err := helper.Publish(ctx, files, folder)
		if err != nil {
			logger.Error("statistics failed", zap.String("folder", name), zap.Error(err))
			failed = append(failed, name)
			continue
		}
		logger.Info("statistics published",
			zap.String("folder", name),
			zap.Strings("files", summary.Files),
			zap.Strings("errors", summary.Errors))
	}

	if len(failed) > 0 {
		if s := slack(); s != nil {
			msg := fmt.Sprintf("No se pudieron calcular las estadísticas de %s", strings.Join(failed, ", "))
			if err := s.Error(ctx, msg); err != nil {
				logger.Warn("slack notification failed", zap.Error(err))
			}
		}
		return fmt.Errorf("statistics failed for %d folder(s)", len(failed))
	}
	return nil
}

func main() {
	defer logger.Sync()
	lambda.Start(HandleRequest)
}
