package server

import (
	"fmt"
	"net/http"
	"strings"
)

// handleSDKScript serves the ckpay.js script
func (s *Server) handleSDKScript(w http.ResponseWriter, r *http.Request) {
	// Determine server URL from request
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	serverURL := fmt.Sprintf("%s://%s", scheme, r.Host)

	script := GenerateSDKScript(serverURL)

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write([]byte(script))
}

// GenerateSDKScript generates ckpay.js with the given server URL. The script
// exposes ckPay.init, ckPay.open and ckPay.convert; it fetches each modal's
// public config from /m/{id}, injects the form from /m/{id}/render and
// reports views and conversions to /b. A submitted form is handed to the
// init onSubmit callback and a ckpay:submit window event.
func GenerateSDKScript(serverURL string) string {
	serverURL = strings.TrimRight(serverURL, "/")
	return fmt.Sprintf(`(function(w){
  var S=%q;
  var cfgs={};

  // Get or create visitor ID
  var vid=localStorage.getItem('ckpay_vid');
  if(!vid){
    vid=crypto.randomUUID();
    localStorage.setItem('ckpay_vid',vid);
  }

  function device(){
    var x=w.innerWidth||1024;
    return x<640?'mobile':(x<1024?'tablet':'desktop');
  }

  function beacon(m,e,extra){
    var b={m:m,e:e,vid:vid,d:device(),r:document.referrer};
    for(var k in extra){b[k]=extra[k];}
    navigator.sendBeacon(S+'/b',JSON.stringify(b));
  }

  function load(id){
    if(!cfgs[id]){
      cfgs[id]=fetch(S+'/m/'+encodeURIComponent(id)).then(function(r){
        if(!r.ok)throw new Error('ckPay: modal '+id+' unavailable');
        return r.json();
      });
    }
    return cfgs[id];
  }

  function markup(id){
    return fetch(S+'/m/'+encodeURIComponent(id)+'/render?viewport='+device()).then(function(r){
      if(!r.ok)throw new Error('ckPay: modal '+id+' unavailable');
      return r.text();
    });
  }

  // The form is rendered server-side from the modal config, so every
  // configured field, limit and theme value matches the dashboard preview.
  function render(c,html){
    var o=document.createElement('div');
    o.setAttribute('data-ckpay-overlay',c.modalId);
    o.style.cssText='position:fixed;inset:0;background:rgba(0,0,0,.5);display:flex;align-items:center;justify-content:center;z-index:2147483647;overflow:auto';
    o.innerHTML=html;
    function close(){o.remove();document.removeEventListener('keydown',esc);}
    function esc(ev){if(ev.key==='Escape')close();}
    o.addEventListener('click',function(ev){if(ev.target===o)close();});
    document.addEventListener('keydown',esc);

    var f=o.querySelector('form.ckpay-form');
    if(f){
      f.addEventListener('submit',function(ev){
        ev.preventDefault();
        var data={};
        new FormData(f).forEach(function(v,k){data[k]=v;});
        var amount=parseFloat(data.amount);
        if(isNaN(amount)||amount<=0||(c.minimumAmount!=null&&amount<c.minimumAmount)||(c.maximumAmount!=null&&amount>c.maximumAmount)){
          var a=f.querySelector('[name=amount]');
          if(a){a.setCustomValidity('Amount out of range');a.reportValidity();a.setCustomValidity('');}
          return;
        }
        var detail={modalId:c.modalId,token:data.token,amount:amount,fields:data};
        var cb=handlers[c.modalId];
        if(cb)cb(detail);
        w.dispatchEvent(new CustomEvent('ckpay:submit',{detail:detail}));
        close();
      });
    }
    document.body.appendChild(o);
  }

  var handlers={};

  w.ckPay={
    init:function(opts){
      if(opts.onSubmit)handlers[opts.modalId]=opts.onSubmit;
      load(opts.modalId).then(function(){beacon(opts.modalId,'view');}).catch(function(err){console.warn(err.message);});
    },
    open:function(id){
      Promise.all([load(id),markup(id)]).then(function(r){render(r[0],r[1]);}).catch(function(err){console.warn(err.message);});
    },
    convert:function(id,token,amount){
      beacon(id,'convert',{tk:token,a:amount});
    }
  };
})(window);`, serverURL)
}
