package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/types"
	"github.com/ethpandaops/suiscope/utils"
)

var layoutTemplateFiles = []string{
	"_layout/layout.html",
	"_layout/header.html",
	"_layout/footer.html",
}

func InitPageData(w http.ResponseWriter, r *http.Request, active, path, title string, mainTemplates []string) *types.PageData {
	fullTitle := fmt.Sprintf("%v - %v", utils.Config.Frontend.SiteName, title)

	if title == "" {
		fullTitle = fmt.Sprintf("%v", utils.Config.Frontend.SiteName)
	}

	buildTime, _ := time.Parse("2006-01-02T15:04:05Z", utils.Buildtime)
	siteDomain := utils.Config.Frontend.SiteDomain
	if siteDomain == "" {
		siteDomain = r.Host
	}

	data := &types.PageData{
		Meta: &types.Meta{
			Title:       fullTitle,
			Description: "Suiscope makes the checkpoints and epochs of the Sui network accessible to everyone",
			Domain:      siteDomain,
			Path:        path,
			Templates:   strings.Join(mainTemplates, ","),
		},
		Active:           active,
		Data:             &types.Empty{},
		Version:          utils.GetExplorerVersion(),
		BuildTime:        fmt.Sprintf("%v", buildTime.Unix()),
		Year:             time.Now().UTC().Year(),
		ExplorerTitle:    utils.Config.Frontend.SiteName,
		ExplorerSubtitle: utils.Config.Frontend.SiteSubtitle,
		ChainName:        utils.Config.Chain.DisplayName,
		TokenSymbol:      utils.Config.Chain.TokenSymbol,
		Debug:            utils.Config.Frontend.Debug,
		ApiEnabled:       utils.Config.Api.Enabled,
		MainMenuItems:    createMenuItems(active),
	}

	if services.GlobalChainService != nil {
		data.ChainId = services.GlobalChainService.GetChainIdentifier()
		data.IsReady = len(services.GlobalChainService.GetLedgerPool().GetReadyEndpoints()) > 0
	}

	if utils.Config.Frontend.SiteDescription != "" {
		data.Meta.Description = utils.Config.Frontend.SiteDescription
	}

	return data
}

func createMenuItems(active string) []types.MainMenuItem {
	return []types.MainMenuItem{
		{
			Label:    "Overview",
			Path:     "/",
			Icon:     "fa-home",
			IsActive: active == "index",
		},
		{
			Label:    "Checkpoints",
			Path:     "/checkpoints",
			Icon:     "fa-cube",
			IsActive: active == "checkpoints",
		},
		{
			Label:    "Epochs",
			Path:     "/epochs",
			Icon:     "fa-history",
			IsActive: active == "epochs",
		},
	}
}

// used to handle errors constructed by Template.ExecuteTemplate correctly
func handleTemplateError(w http.ResponseWriter, r *http.Request, fileIdentifier string, functionIdentifier string, infoIdentifier string, err error) error {
	// ignore network related errors
	if err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ETIMEDOUT) {
		logger.WithFields(logger.Fields{
			"file":       fileIdentifier,
			"function":   functionIdentifier,
			"info":       infoIdentifier,
			"error type": fmt.Sprintf("%T", err),
			"route":      r.URL.String(),
		}).WithError(err).Error("error executing template")
		http.Error(w, "Internal server error", http.StatusServiceUnavailable)
	}
	return err
}
