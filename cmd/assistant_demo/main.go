package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"masar/internal/modules/assistant"
	"masar/internal/modules/location"
	"masar/internal/modules/parcel"
	"masar/internal/types"
)

// staticTracker answers every lookup with one sample shipment.
type staticTracker struct{}

func (staticTracker) Track(_ context.Context, tracking string) (parcel.PublicView, error) {
	now := time.Now().UTC()
	p := parcel.Parcel{
		TrackingNumber: tracking,
		Status:         parcel.StatusInTransit,
		Pickup:         location.Address{City: "Muscat", Country: "Oman"},
		Delivery:       location.Address{City: "Sohar", Country: "Oman"},
		CreatedAt:      now.Add(-26 * time.Hour),
		PickedUpAt:     &now,
	}
	return p.Public(), nil
}

func main() {
	message := flag.String("m", "Where is my parcel and when will it arrive?", "message to send")
	tracking := flag.String("t", "A1B2C3D4E5", "tracking number to give the assistant as context")
	lang := flag.String("lang", "en", "reply language (en or ar)")
	flag.Parse()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable not set")
	}

	ctx := context.Background()
	model, err := assistant.NewGemini(ctx, apiKey)
	if err != nil {
		log.Fatalf("Failed to initialize assistant model: %v", err)
	}
	defer model.Close()

	svc := assistant.NewService(assistant.ServiceDeps{
		Quota:   assistant.NewMemoryQuota(assistant.DefaultTokens),
		Model:   model,
		Tracker: staticTracker{},
	})

	fmt.Printf("User: %s\n", *message)
	reply, err := svc.Chat(ctx, assistant.ChatCommand{
		UID:            string(types.NewID()),
		Message:        *message,
		TrackingNumber: *tracking,
		Language:       *lang,
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Assistant: %s\n", reply.Text)
}
