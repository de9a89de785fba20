package web

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"podcastr/internal/models"
	"podcastr/internal/player"
)

var pageFuncs = template.FuncMap{
	// Descriptions come from the content API and are shown as authored.
	"rawHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
	"add": func(a, b int) int {
		return a + b
	},
}

const layoutHTML = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.PageTitle}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { display: flex; font-family: Inter, -apple-system, "Segoe UI", sans-serif; background: #f7f8fa; color: #494d4b; }
        main { flex: 1; height: 100vh; overflow-y: auto; padding: 0 4rem 2rem; }
        header.site { height: 6.5rem; display: flex; align-items: center; gap: 1rem; border-bottom: 1px solid #e6e8eb; margin-bottom: 2rem; }
        header.site a { color: #8257e5; font-weight: 600; font-size: 1.5rem; text-decoration: none; }
        h2 { margin: 2rem 0 1.5rem; }
        ul.latest { list-style: none; display: grid; grid-template-columns: repeat(2, 1fr); gap: 1.5rem; }
        ul.latest li { background: #fff; border: 1px solid #f2f3f5; border-radius: 1.5rem; padding: 1.25rem; display: flex; align-items: center; gap: 1rem; }
        img.thumb { width: 6rem; height: 6rem; border-radius: 1rem; object-fit: cover; }
        .details { flex: 1; display: flex; flex-direction: column; gap: 0.25rem; }
        .details a, td a { color: #494d4b; font-weight: 600; text-decoration: none; }
        .details span { font-size: 0.875rem; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 0.75rem 1rem; border-bottom: 1px solid #e6e8eb; text-align: left; }
        th { color: #808080; text-transform: uppercase; font-size: 0.75rem; }
        button { border: 1px solid #e6e8eb; background: #fff; border-radius: 0.5rem; padding: 0.5rem 0.75rem; cursor: pointer; }
        button:disabled { opacity: 0.5; cursor: not-allowed; }
        button.active { color: #04d361; }
        aside.player { width: 26.5rem; height: 100vh; padding: 3rem 4rem; background: #8257e5; color: #fff; display: flex; flex-direction: column; justify-content: space-between; }
        aside.player form { display: inline; }
        .episode-header h1 { margin: 1.5rem 0 0.5rem; }
        .episode-header span { margin-right: 1rem; }
        .description { margin-top: 2rem; line-height: 1.675rem; }
        .progress { display: flex; align-items: center; gap: 0.5rem; font-size: 0.875rem; }
        .progress input { flex: 1; }
    </style>
</head>
<body>
<main>
    <header class="site"><a href="/">{{.SiteTitle}}</a></header>
    {{template "content" .}}
</main>
{{template "player" .Player}}
<script>
(function () {
    var audio = document.getElementById("audio");
    var slider = document.getElementById("player-seek");
    var elapsed = document.getElementById("player-progress");
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/player/ws");
    var lastSecond = -1;
    var owner = false;
    var current = null;
    var loaded = -1;

    function send(type, position) {
        if (owner && current && ws.readyState === WebSocket.OPEN) {
            ws.send(JSON.stringify({type: type, position: position || 0, generation: current.generation}));
        }
    }

    function syncAudio() {
        var ep = current && current.episode;
        if (!owner || !ep) {
            audio.pause();
            if (audio.hasAttribute("src")) {
                audio.removeAttribute("src");
                audio.load();
            }
            loaded = -1;
            return;
        }
        if (loaded !== current.generation) {
            if (audio.getAttribute("src") !== ep.url) {
                audio.setAttribute("src", ep.url);
            } else {
                audio.currentTime = 0;
            }
            loaded = current.generation;
            lastSecond = -1;
        }
        audio.loop = current.is_looping;
        if (current.is_playing && audio.paused) {
            audio.play().catch(function () {});
        } else if (!current.is_playing && !audio.paused) {
            audio.pause();
        }
    }

    function render(view) {
        var ep = view.episode;
        document.getElementById("player-title").textContent = ep ? ep.title : "Selecione um podcast para ouvir";
        document.getElementById("player-members").textContent = ep ? ep.members : "";
        elapsed.textContent = view.progress_string;
        document.getElementById("player-duration").textContent = view.duration_string;
        slider.max = ep ? ep.duration : 0;
        slider.value = view.progress;
        slider.disabled = !ep;
        ["shuffle", "prev", "toggle", "next", "loop"].forEach(function (name) {
            document.getElementById("player-" + name).disabled = !view["can_" + {shuffle: "shuffle", prev: "previous", toggle: "play", next: "next", loop: "loop"}[name]];
        });
        document.getElementById("player-toggle").textContent = view.is_playing ? "Pausar" : "Tocar";
        document.getElementById("player-loop").classList.toggle("active", view.is_looping);
        document.getElementById("player-shuffle").classList.toggle("active", view.is_shuffling);
        current = view;
        syncAudio();
    }

    ws.onmessage = function (msg) {
        var data = JSON.parse(msg.data);
        if (data.type === "state") {
            render(data.view);
        } else if (data.type === "role") {
            owner = data.audio;
            syncAudio();
        } else if (owner && data.type === "command") {
            audio.currentTime = data.command.position;
            if (data.command.type === "restart") {
                audio.play().catch(function () {});
            }
        }
    };

    audio.addEventListener("timeupdate", function () {
        var second = Math.floor(audio.currentTime);
        if (second !== lastSecond) {
            lastSecond = second;
            send("timeupdate", audio.currentTime);
        }
    });
    audio.addEventListener("loadedmetadata", function () { send("loadedmetadata"); });
    audio.addEventListener("play", function () { send("play"); });
    audio.addEventListener("pause", function () { if (!audio.ended) { send("pause"); } });
    audio.addEventListener("ended", function () { send("ended"); });
    slider.addEventListener("input", function () {
        var position = Number(slider.value);
        if (owner) {
            send("seek", position);
            return;
        }
        fetch("/player/seek", {method: "POST", body: JSON.stringify({position: position}), headers: {"Content-Type": "application/json", "Accept": "application/json"}})
            .catch(function () {});
    });

    document.querySelectorAll("form[data-player]").forEach(function (form) {
        form.addEventListener("submit", function (e) {
            e.preventDefault();
            fetch(form.action, {method: "POST", body: new FormData(form), headers: {"Accept": "application/json"}})
                .then(function (res) { return res.json(); })
                .then(render)
                .catch(function () {});
        });
    });
})();
</script>
</body>
</html>
{{define "player"}}
<aside class="player">
    <header><strong>Tocando agora</strong></header>
    <div>
        <strong id="player-title">{{if .Episode}}{{.Episode.Title}}{{else}}Selecione um podcast para ouvir{{end}}</strong>
        <p id="player-members">{{if .Episode}}{{.Episode.Members}}{{end}}</p>
    </div>
    <footer>
        <div class="progress">
            <span id="player-progress">{{.ProgressString}}</span>
            <input id="player-seek" type="range" min="0" max="{{if .Episode}}{{.Episode.Duration}}{{else}}0{{end}}" value="{{.Progress}}"{{if not .Episode}} disabled{{end}}>
            <span id="player-duration">{{.DurationString}}</span>
        </div>
        <audio id="audio" preload="none"></audio>
        <div class="buttons">
            <form data-player method="post" action="/player/shuffle"><button id="player-shuffle" type="submit"{{if .IsShuffling}} class="active"{{end}}{{if not .CanShuffle}} disabled{{end}}>Embaralhar</button></form>
            <form data-player method="post" action="/player/prev"><button id="player-prev" type="submit"{{if not .CanPrevious}} disabled{{end}}>Anterior</button></form>
            <form data-player method="post" action="/player/toggle"><button id="player-toggle" type="submit"{{if not .CanPlay}} disabled{{end}}>{{if .IsPlaying}}Pausar{{else}}Tocar{{end}}</button></form>
            <form data-player method="post" action="/player/next"><button id="player-next" type="submit"{{if not .CanNext}} disabled{{end}}>Próximo</button></form>
            <form data-player method="post" action="/player/loop"><button id="player-loop" type="submit"{{if .IsLooping}} class="active"{{end}}{{if not .CanLoop}} disabled{{end}}>Repetir</button></form>
        </div>
    </footer>
</aside>
{{end}}`

var layoutTemplate = template.Must(template.New("layout").Funcs(pageFuncs).Parse(layoutHTML))

var homeTemplate = template.Must(template.Must(layoutTemplate.Clone()).Parse(`{{define "content"}}
<section>
    <h2>Últimos lançamentos</h2>
    <ul class="latest">
    {{range $i, $ep := .Home.Latest}}
        <li>
            {{if $ep.Thumbnail}}<img class="thumb" src="{{$ep.Thumbnail}}" alt="{{$ep.Title}}">{{end}}
            <div class="details">
                <a href="/episodes/{{$ep.ID}}">{{$ep.Title}}</a>
                <p>{{$ep.Members}}</p>
                <span>{{$ep.PublishedAt}}</span>
                <span>{{$ep.TimeString}}</span>
            </div>
            <form data-player method="post" action="/player/playlist">
                <input type="hidden" name="index" value="{{$i}}">
                <input type="hidden" name="id" value="{{$ep.ID}}">
                <button type="submit" title="Tocar episódio">Tocar</button>
            </form>
        </li>
    {{end}}
    </ul>
</section>
<section>
    <h2>Todos os episódios</h2>
    <table>
        <thead>
            <tr><th></th><th>Podcast</th><th>Integrantes</th><th>Data</th><th>Duração</th><th></th></tr>
        </thead>
        <tbody>
        {{$offset := len .Home.Latest}}
        {{range $i, $ep := .Home.All}}
            <tr>
                <td>{{if $ep.Thumbnail}}<img class="thumb" src="{{$ep.Thumbnail}}" alt="{{$ep.Title}}">{{end}}</td>
                <td><a href="/episodes/{{$ep.ID}}">{{$ep.Title}}</a></td>
                <td>{{$ep.Members}}</td>
                <td>{{$ep.PublishedAt}}</td>
                <td>{{$ep.TimeString}}</td>
                <td>
                    <form data-player method="post" action="/player/playlist">
                        <input type="hidden" name="index" value="{{add $i $offset}}">
                        <input type="hidden" name="id" value="{{$ep.ID}}">
                        <button type="submit" title="Tocar episódio">Tocar</button>
                    </form>
                </td>
            </tr>
        {{end}}
        </tbody>
    </table>
</section>
{{end}}`))

var episodeTemplate = template.Must(template.Must(layoutTemplate.Clone()).Parse(`{{define "content"}}
<div class="episode">
    <div class="thumbnail">
        <a class="back" href="/" title="Voltar">Voltar</a>
        {{if .Episode.Thumbnail}}<img src="{{.Episode.Thumbnail}}" alt="{{.Episode.Title}}" style="width: 100%; height: 10rem; object-fit: cover; border-radius: 1rem;">{{end}}
        <form data-player method="post" action="/player/play/{{.Episode.ID}}">
            <button type="submit" title="Tocar episódio">Tocar</button>
        </form>
    </div>
    <div class="episode-header">
        <h1>{{.Episode.Title}}</h1>
        <span>{{.Episode.Members}}</span>
        <span>{{.Episode.PublishedAt}}</span>
        <span>{{.Episode.TimeString}}</span>
    </div>
    <div class="description">{{rawHTML .Episode.Description}}</div>
</div>
{{end}}`))

var errorTemplate = template.Must(template.Must(layoutTemplate.Clone()).Parse(`{{define "content"}}
<section>
    <h2>{{.Message}}</h2>
    <p><a href="/">Voltar para o início</a></p>
</section>
{{end}}`))

type pageData struct {
	SiteTitle string
	PageTitle string
	Player    player.View
	Home      homeProps
	Episode   models.Episode
	Message   string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	props, err := s.homeProps(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("homepage generation failed")
		s.renderError(w, generationStatus(err), "Não foi possível carregar os episódios")
		return
	}

	view := s.controller.View()
	title := "Home | " + s.title
	if view.Episode != nil {
		title += " - " + view.Episode.Title
	}
	s.render(w, http.StatusOK, homeTemplate, pageData{
		SiteTitle: s.title,
		PageTitle: title,
		Player:    view,
		Home:      props,
	})
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	episode, err := s.episodeProps(r.Context(), id)
	if err != nil {
		status := generationStatus(err)
		s.logger.Error().Err(err).Str("episode_id", id).Int("status", status).Msg("episode page generation failed")
		message := "Não foi possível carregar o episódio"
		if status == http.StatusNotFound {
			message = "Episódio não encontrado"
		}
		s.renderError(w, status, message)
		return
	}

	s.render(w, http.StatusOK, episodeTemplate, pageData{
		SiteTitle: s.title,
		PageTitle: episode.Title + " | " + s.title,
		Player:    s.controller.View(),
		Episode:   episode,
	})
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.render(w, status, errorTemplate, pageData{
		SiteTitle: s.title,
		PageTitle: message + " | " + s.title,
		Player:    s.controller.View(),
		Message:   message,
	})
}

func (s *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("failed to render page")
	}
}
