package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rozadev/roza/cmd/common"
	rcommon "github.com/rozadev/roza/common"
	"github.com/urfave/cli"
)

var (
	locName string
	locLat  float64
	locLon  float64

	locationFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "name, n",
			Usage:       "display name of the location (looked up when empty)",
			Destination: &locName,
		},
		cli.Float64Flag{
			Name:        "lat",
			Usage:       "latitude in decimal degrees",
			Destination: &locLat,
		},
		cli.Float64Flag{
			Name:        "lon",
			Usage:       "longitude in decimal degrees",
			Destination: &locLon,
		},
	}
)

func printLocation(l *rcommon.LocationResult) {
	name := l.Name
	if name == "" {
		name = "-"
	}
	fmt.Printf("Location\t: %s\n", name)
	fmt.Printf("Coordinates\t: %.4f, %.4f\n", l.Latitude, l.Longitude)
	if l.CountryCode != "" {
		fmt.Printf("Country\t\t: %s\n", l.CountryCode)
	}
}

func locationShow(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "location", "new_client", err)
		return nil
	}
	defer client.Close()

	l, err := client.Location(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "location", "get_location", explain(err))
		return nil
	}
	printLocation(l)
	return nil
}

func locationSearch(ctx *cli.Context) error {
	query := strings.TrimSpace(strings.Join(ctx.Args(), " "))
	switch query {
	case "help":
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	case "":
		return common.PrintErrWithCmdHelp(ctx, errors.New("no place name provided"))
	}
	return searchLocation(ctx, query)
}

func searchLocation(ctx *cli.Context, query string) error {
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "location", "new_client", err)
		return nil
	}
	defer client.Close()

	l, err := client.SearchLocation(rctx, query)
	if err != nil {
		common.PrintRuntimeErr(ctx, "location", "search", err)
		return nil
	}
	fmt.Println("Now tracking:")
	printLocation(l)
	return nil
}

func locationSet(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	hasLat, hasLon := ctx.IsSet("lat"), ctx.IsSet("lon")
	if !hasLat && !hasLon {
		// "location set <city>" behaves like search
		if query := strings.TrimSpace(strings.Join(ctx.Args(), " ")); query != "" {
			return searchLocation(ctx, query)
		}
		return common.PrintErrWithCmdHelp(ctx, errors.New("either a city or --lat and --lon are required"))
	}
	if hasLat != hasLon {
		return common.PrintErrWithCmdHelp(ctx, errors.New("--lat and --lon must be given together"))
	}
	if err := validCoordinates(locLat, locLon); err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "location", "new_client", err)
		return nil
	}
	defer client.Close()

	l, err := client.SetCoordinates(rctx, locName, locLat, locLon)
	if err != nil {
		common.PrintRuntimeErr(ctx, "location", "set", err)
		return nil
	}
	fmt.Println("Now tracking:")
	printLocation(l)
	return nil
}

func validCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return nil
}
