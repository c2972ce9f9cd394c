// Command rides lists RoadBuddy rides from a terminal.
//
//	rides -email pat@example.com -password ... -sort cost -q boston
//	rides -email pat@example.com -password ... -route <ride id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/roadbuddy/internal/api"
	"github.com/example/roadbuddy/internal/config"
	"github.com/example/roadbuddy/internal/directions"
	"github.com/example/roadbuddy/internal/identity"
	"github.com/example/roadbuddy/internal/logging"
	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/rides"
	"github.com/example/roadbuddy/internal/storage"
)

func main() {
	_ = godotenv.Load()

	var (
		email    = flag.String("email", "", "account email")
		password = flag.String("password", "", "account password (default $ROADBUDDY_PASSWORD)")
		sortKey  = flag.String("sort", "", "sort key: "+keyList())
		query    = flag.String("q", "", "only rides whose origin, destination or driver contains this text")
		routeID  = flag.String("route", "", "print the route of this ride instead of the list")
	)
	flag.Parse()

	if err := run(*email, passwordOr(*password), *sortKey, *query, *routeID, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "rides:", err)
		os.Exit(1)
	}
}

// passwordOr falls back to ROADBUDDY_PASSWORD when the flag is empty.
func passwordOr(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("ROADBUDDY_PASSWORD")
}

func run(email, password, sortKey, query, routeID string, out io.Writer) error {
	if email == "" || password == "" {
		return errors.New("-email and -password are required")
	}
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger("error", "rides-cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sess, err := identity.New(cfg.IdentityURL, cfg.FirebaseAPIKey).SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	backend, err := api.New(cfg.BackendURL, api.WithTimeout(cfg.BackendTimeout))
	if err != nil {
		return err
	}
	if _, err := backend.Authorize(ctx, sess.IDToken); err != nil {
		return err
	}

	if routeID != "" {
		if cfg.GoogleMapsAPIKey == "" {
			return errors.New("GOOGLE_MAPS_API_KEY is required for -route")
		}
		ride, err := backend.Ride(ctx, routeID)
		if err != nil {
			return err
		}
		provider, err := directions.NewGoogleClient(cfg.DirectionsURL, cfg.GoogleMapsAPIKey)
		if err != nil {
			return err
		}
		svc := directions.NewService(provider, storage.NewMemoryStore(), 0, logger)
		route, err := svc.Route(ctx, ride.From, ride.To)
		if err != nil {
			return err
		}
		return printRoute(out, ride, route)
	}

	list, err := backend.AvailableRides(ctx)
	if err != nil {
		return err
	}
	if query != "" {
		list = rides.Search(list, query)
	}
	key := rides.SortKey(sortKey)
	if key == "" {
		key = rides.SortKey(cfg.DefaultSort)
	}
	return printRides(out, rides.Sort(list, key))
}

func keyList() string {
	keys := rides.Keys()
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}

func printRides(w io.Writer, list []models.Ride) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tDATE\tTIME\tCOST\tSEATS\tDRIVER")
	for _, r := range list {
		cost := "?"
		if r.CostKnown() {
			cost = api.FormatAmount(r.Cost)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t$%s\t%d/%d\t%s\n",
			r.ID, r.From, r.To, r.Date, r.DepartureTime, cost, r.SeatsLeft(), r.MaxPassengers, r.OwnerName)
	}
	if len(list) == 0 {
		fmt.Fprintln(tw, "(no rides)")
	}
	return tw.Flush()
}

func printRoute(w io.Writer, ride models.Ride, route models.Route) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ride\t%s\n", ride.ID)
	fmt.Fprintf(tw, "from\t%s (%.5f, %.5f)\n", ride.From, route.Origin.Lat, route.Origin.Lon)
	fmt.Fprintf(tw, "to\t%s (%.5f, %.5f)\n", ride.To, route.Destination.Lat, route.Destination.Lon)
	fmt.Fprintf(tw, "distance\t%.1f km\n", route.DistanceMeters/1000)
	fmt.Fprintf(tw, "duration\t%s\n", (time.Duration(route.DurationSeconds) * time.Second).Round(time.Minute))
	fmt.Fprintf(tw, "points\t%d\n", len(route.Points))
	fmt.Fprintf(tw, "center\t%.5f, %.5f\n", route.Region.Center.Lat, route.Region.Center.Lon)
	return tw.Flush()
}
