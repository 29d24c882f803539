package service

import "github.com/epicstrade/rifas/internal/model"

var faqFallback = map[string]string{
	"pt": "Não encontrei uma resposta para isso. Abra um ticket de suporte que nossa equipe responde em breve.",
	"en": "I couldn't find an answer to that. Open a support ticket and our team will get back to you soon.",
	"es": "No encontré una respuesta para eso. Abre un ticket de soporte y nuestro equipo te responderá pronto.",
}

// DefaultFAQ is the chat widget knowledge base
var DefaultFAQ = []model.FAQEntry{
	// Português
	{
		ID: "login", Lang: "pt",
		Question: "Como faço login?",
		Answer:   "Clique em Entrar com Steam. Você será redirecionado para a Steam e voltará conectado. Não pedimos sua senha.",
		Keywords: []string{"login", "entrar", "conta", "steam", "senha"},
	},
	{
		ID: "raffles", Lang: "pt",
		Question: "Como funcionam as rifas (eventos)?",
		Answer:   "Cada evento sorteia uma skin. Compre bilhetes com seu saldo; quando todos forem vendidos ou a data do sorteio chegar, o vencedor é sorteado automaticamente.",
		Keywords: []string{"rifa", "rifas", "evento", "eventos", "bilhete", "bilhetes", "sorteio"},
	},
	{
		ID: "fairness", Lang: "pt",
		Question: "O sorteio é justo?",
		Answer:   "Sim. Publicamos o hash SHA3-256 de uma semente secreta antes das vendas e revelamos a semente após o sorteio. Qualquer pessoa pode recalcular o bilhete vencedor.",
		Keywords: []string{"justo", "justica", "hash", "semente", "verificar", "fraude"},
	},
	{
		ID: "auctions", Lang: "pt",
		Question: "Como funcionam os leilões?",
		Answer:   "Dê um lance acima do lance atual mais o incremento mínimo. O valor fica bloqueado na sua carteira enquanto você lidera e é liberado se alguém cobrir. Lances nos últimos segundos prorrogam o leilão.",
		Keywords: []string{"leilao", "leiloes", "lance", "lances", "incremento", "prorrogacao"},
	},
	{
		ID: "wallet", Lang: "pt",
		Question: "O que é saldo bloqueado?",
		Answer:   "É o valor reservado pelos seus lances vencedores em leilões ativos. Ele volta ao saldo disponível quando você é superado ou o leilão é cancelado.",
		Keywords: []string{"saldo", "carteira", "bloqueado", "dinheiro", "reais"},
	},
	{
		ID: "points", Lang: "pt",
		Question: "Como ganho pontos?",
		Answer:   "Cada bilhete comprado rende pontos de fidelidade, creditados na hora na sua carteira.",
		Keywords: []string{"pontos", "fidelidade", "recompensa"},
	},
	{
		ID: "inventory", Lang: "pt",
		Question: "Por que meu inventário não aparece?",
		Answer:   "Seu inventário Steam precisa estar público. Ajuste a privacidade do perfil na Steam e tente novamente.",
		Keywords: []string{"inventario", "itens", "skins", "privado", "privacidade"},
	},
	{
		ID: "report", Lang: "pt",
		Question: "Como denuncio um usuário?",
		Answer:   "Use o botão Denunciar no perfil, evento ou leilão. A equipe analisa todas as denúncias.",
		Keywords: []string{"denuncia", "denunciar", "golpe", "fraude", "abuso"},
	},

	// English
	{
		ID: "login", Lang: "en",
		Question: "How do I log in?",
		Answer:   "Click Sign in with Steam. You will be sent to Steam and come back signed in. We never ask for your password.",
		Keywords: []string{"login", "log", "sign", "account", "steam", "password"},
	},
	{
		ID: "raffles", Lang: "en",
		Question: "How do raffles (events) work?",
		Answer:   "Each event raffles one skin. Buy tickets with your balance; when they sell out or the draw date arrives the winner is drawn automatically.",
		Keywords: []string{"raffle", "raffles", "event", "events", "ticket", "tickets", "draw"},
	},
	{
		ID: "fairness", Lang: "en",
		Question: "Is the draw fair?",
		Answer:   "Yes. We publish the SHA3-256 hash of a secret seed before sales start and reveal the seed after the draw, so anyone can recompute the winning ticket.",
		Keywords: []string{"fair", "fairness", "hash", "seed", "verify", "rigged"},
	},
	{
		ID: "auctions", Lang: "en",
		Question: "How do auctions work?",
		Answer:   "Bid at least the current bid plus the minimum increment. Your bid is locked in your wallet while you lead and released when you are outbid. Late bids extend the auction.",
		Keywords: []string{"auction", "auctions", "bid", "bids", "increment", "outbid"},
	},
	{
		ID: "wallet", Lang: "en",
		Question: "What is locked balance?",
		Answer:   "Funds reserved by your leading bids in active auctions. They return to your available balance when you are outbid or the auction is cancelled.",
		Keywords: []string{"balance", "wallet", "locked", "money", "funds"},
	},
	{
		ID: "points", Lang: "en",
		Question: "How do I earn points?",
		Answer:   "Every ticket you buy earns loyalty points, credited to your wallet immediately.",
		Keywords: []string{"points", "loyalty", "reward", "rewards"},
	},
	{
		ID: "inventory", Lang: "en",
		Question: "Why doesn't my inventory show up?",
		Answer:   "Your Steam inventory must be public. Change your profile privacy on Steam and try again.",
		Keywords: []string{"inventory", "items", "skins", "private", "privacy"},
	},
	{
		ID: "report", Lang: "en",
		Question: "How do I report a user?",
		Answer:   "Use the Report button on the profile, event or auction. Staff reviews every report.",
		Keywords: []string{"report", "scam", "fraud", "abuse"},
	},

	// Español
	{
		ID: "login", Lang: "es",
		Question: "¿Cómo inicio sesión?",
		Answer:   "Haz clic en Iniciar sesión con Steam. Serás redirigido a Steam y volverás conectado. Nunca pedimos tu contraseña.",
		Keywords: []string{"sesion", "iniciar", "cuenta", "steam", "contraseña"},
	},
	{
		ID: "raffles", Lang: "es",
		Question: "¿Cómo funcionan las rifas (eventos)?",
		Answer:   "Cada evento sortea una skin. Compra boletos con tu saldo; cuando se agoten o llegue la fecha del sorteo, el ganador se elige automáticamente.",
		Keywords: []string{"rifa", "rifas", "evento", "eventos", "boleto", "boletos", "sorteo"},
	},
	{
		ID: "fairness", Lang: "es",
		Question: "¿El sorteo es justo?",
		Answer:   "Sí. Publicamos el hash SHA3-256 de una semilla secreta antes de las ventas y la revelamos después del sorteo. Cualquiera puede recalcular el boleto ganador.",
		Keywords: []string{"justo", "hash", "semilla", "verificar", "trampa"},
	},
	{
		ID: "auctions", Lang: "es",
		Question: "¿Cómo funcionan las subastas?",
		Answer:   "Puja al menos la oferta actual más el incremento mínimo. El monto queda bloqueado en tu billetera mientras lideras y se libera si te superan. Las pujas de último momento extienden la subasta.",
		Keywords: []string{"subasta", "subastas", "puja", "pujas", "oferta", "incremento"},
	},
	{
		ID: "wallet", Lang: "es",
		Question: "¿Qué es el saldo bloqueado?",
		Answer:   "Es el monto reservado por tus pujas ganadoras en subastas activas. Vuelve a tu saldo disponible cuando te superan o se cancela la subasta.",
		Keywords: []string{"saldo", "billetera", "bloqueado", "dinero", "fondos"},
	},
	{
		ID: "points", Lang: "es",
		Question: "¿Cómo gano puntos?",
		Answer:   "Cada boleto que compras suma puntos de fidelidad, acreditados al instante en tu billetera.",
		Keywords: []string{"puntos", "fidelidad", "recompensa"},
	},
	{
		ID: "inventory", Lang: "es",
		Question: "¿Por qué no aparece mi inventario?",
		Answer:   "Tu inventario de Steam debe ser público. Cambia la privacidad de tu perfil en Steam e inténtalo de nuevo.",
		Keywords: []string{"inventario", "objetos", "skins", "privado", "privacidad"},
	},
	{
		ID: "report", Lang: "es",
		Question: "¿Cómo denuncio a un usuario?",
		Answer:   "Usa el botón Denunciar en el perfil, evento o subasta. El equipo revisa todas las denuncias.",
		Keywords: []string{"denuncia", "denunciar", "estafa", "fraude", "abuso"},
	},
}
