package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"llm-arena/internal/config"
	"llm-arena/internal/db"
	"llm-arena/internal/elo"
	"llm-arena/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

func main() {
	// Load config
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	ctx := context.Background()

	// Delete all ratings
	ratingsResult, err := mongodb.ModelRatings().DeleteMany(ctx, bson.M{})
	if err != nil {
		log.Fatalf("Failed to delete ratings: %v", err)
	}
	fmt.Printf("Deleted %d rating records\n", ratingsResult.DeletedCount)

	// Delete all battles
	battlesResult, err := mongodb.Battles().DeleteMany(ctx, bson.M{})
	if err != nil {
		log.Fatalf("Failed to delete battles: %v", err)
	}
	fmt.Printf("Deleted %d battles\n", battlesResult.DeletedCount)

	// Reseed the global leaderboard from the configured catalog
	now := time.Now()
	var docs []interface{}
	for _, entry := range cfg.Models {
		docs = append(docs, models.ModelRating{
			ModelID:     entry.ID,
			Scope:       models.GlobalScope().Key(),
			DisplayName: entry.Name,
			Elo:         elo.InitialRating,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(docs) > 0 {
		seeded, err := mongodb.ModelRatings().InsertMany(ctx, docs)
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		fmt.Printf("Seeded %d catalog models\n", len(seeded.InsertedIDs))
	}

	fmt.Println("Database reset successfully")
}
