package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/inkpost/inkpost/internal/client"
)

var authors = []struct {
	name  string
	email string
}{
	{"Ada Osei", "ada@inkpost.test"},
	{"Bruno Lima", "bruno@inkpost.test"},
	{"Chen Wei", "chen@inkpost.test"},
	{"Dana Novak", "dana@inkpost.test"},
}

var posts = []struct {
	title    string
	category string
}{
	{"Notes from a first gallery opening", "Art"},
	{"Pricing your first freelance project", "Business"},
	{"What a year of tutoring taught me", "Education"},
	{"Why the budget vote stalled again", "Investment"},
	{"Building a rain garden on a small lot", "Agriculture"},
	{"Open questions after the council meeting", "Uncategorized"},
	{"Storm season, explained with one chart", "Weather"},
	{"Watercolour on a train: a field guide", "Art"},
	{"Reading the quarterly report like an analyst", "Business"},
	{"Ten minutes of spaced repetition a day", "Education"},
}

var paragraphs = []string{
	"This started as a short note to myself and grew from there.",
	"Most of the advice I found assumed a bigger budget than I had.",
	"I kept a log for a month before writing any of this down.",
	"The numbers are rough but the trend is clear enough.",
	"If you try this, start small and write down what changes.",
}

func main() {
	app := &cli.App{
		Name:  "seed",
		Usage: "Populate an Inkpost server with demo authors and posts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8000", Usage: "Inkpost server URL", EnvVars: []string{"INKPOST_URL"}},
			&cli.StringFlag{Name: "password", Value: "inkpost-demo", Usage: "Password for every demo author"},
		},
		Action: seed,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	baseURL := c.String("url")
	password := c.String("password")
	log.Printf("Seeding %s...\n", baseURL)

	if err := client.New(baseURL).Health(); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}

	var clients []*client.Client
	for i, a := range authors {
		api := client.New(baseURL)
		if _, err := api.Register(a.name, a.email, password); err != nil {
			if client.StatusOf(err) != http.StatusUnprocessableEntity {
				return fmt.Errorf("register %s: %w", a.name, err)
			}
			log.Printf("• %s already registered", a.name)
		} else {
			log.Printf("✓ Registered author: %s", a.name)
		}
		if err := api.Login(a.email, password); err != nil {
			return fmt.Errorf("login %s: %w", a.name, err)
		}
		avatar, err := api.ChangeAvatar(client.Image{Name: "avatar.png", Data: bytes.NewReader(swatch(48, i))})
		if err != nil {
			log.Printf("✗ Failed to set avatar for %s: %v", a.name, err)
		} else {
			log.Printf("  ↳ avatar %s", avatar)
		}
		clients = append(clients, api)
	}

	var created []*client.Post
	for i, p := range posts {
		api := clients[rand.Intn(len(clients))]
		post, err := api.CreatePost(client.PostInput{
			Title:       p.title,
			Category:    p.category,
			Description: body(),
			Thumbnail:   &client.Image{Name: "thumbnail.png", Data: bytes.NewReader(swatch(320, i))},
		})
		if err != nil {
			log.Printf("✗ Failed to post %q: %v", p.title, err)
			continue
		}
		created = append(created, post)
		log.Printf("✓ Posted %s: %s (by %s)", post.ID, post.Title, api.Name)
	}

	// Touch a couple of posts so the main listing differs from creation order.
	edited := 0
	for _, post := range created[:min(2, len(created))] {
		owner := ownerOf(clients, post.Creator)
		if owner == nil {
			continue
		}
		_, err := owner.EditPost(post.ID, client.PostInput{
			Title:       post.Title + " (updated)",
			Category:    post.Category,
			Description: post.Description + "\n\nUpdate: a few readers asked for a follow-up.",
		})
		if err != nil {
			log.Printf("✗ Failed to edit %s: %v", post.ID, err)
			continue
		}
		edited++
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Authors:  %d\n", len(clients))
	fmt.Printf("Posts:    %d (%d edited)\n", len(created), edited)
	fmt.Printf("Password: %s\n", password)
	fmt.Println("\nBrowse at:", baseURL+"/api/posts/")
	return nil
}

func ownerOf(clients []*client.Client, userID string) *client.Client {
	for _, c := range clients {
		if c.UserID == userID {
			return c
		}
	}
	return nil
}

func body() string {
	n := rand.Intn(3) + 2
	parts := make([]string, n)
	for i := range parts {
		parts[i] = paragraphs[rand.Intn(len(paragraphs))]
	}
	return strings.Join(parts, " ")
}

// swatch renders a square PNG whose colour depends on seed.
func swatch(size, seed int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	base := color.RGBA{R: uint8(60 + seed*37%180), G: uint8(90 + seed*53%150), B: uint8(120 + seed*29%120), A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := base
			if (x/16+y/16)%2 == 0 {
				c.R, c.G, c.B = c.R/2, c.G/2, c.B/2
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
